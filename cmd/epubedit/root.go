package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/starmast/epub-edit/version"
)

var (
	cfgFile string
	homeDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "epubedit",
	Short: "LLM-powered copy editing for book chapters",
	Long: `epubedit runs book chapters through an LLM copy editor and applies the
returned edits locally.

Chapters are batched for cross-chapter consistency, the model responds in a
compact edit-command format (replace, delete, insert, merge), and every edit
is applied and diffable without re-sending chapter text.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.epubedit/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "epubedit home directory (default: ~/.epubedit)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger honoring the --verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

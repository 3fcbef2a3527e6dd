package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/starmast/epub-edit/internal/home"
	"github.com/starmast/epub-edit/internal/store"
)

var importStart int

var importCmd = &cobra.Command{
	Use:   "import <project> <file>...",
	Short: "Import chapter text files into a project",
	Long: `Import plain-text chapter files into a project. Files become chapters in
argument order; the file name (without extension) becomes the chapter title.

Examples:
  epubedit import mybook chapters/*.txt
  epubedit import mybook ch5.txt --start 5   # Replace chapter 5 only`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		fs, err := store.NewFileStore(h, args[0], logger)
		if err != nil {
			return err
		}

		files := args[1:]
		for i, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			num := importStart + i
			title := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			if err := fs.ImportChapter(num, title, string(data)); err != nil {
				return err
			}
			fmt.Printf("imported chapter %d: %s\n", num, title)
		}

		fmt.Printf("imported %d chapters into %s\n", len(files), args[0])
		return nil
	},
}

func init() {
	importCmd.Flags().IntVar(&importStart, "start", 1, "Chapter number for the first file")

	rootCmd.AddCommand(importCmd)
}

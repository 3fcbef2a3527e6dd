package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starmast/epub-edit/internal/config"
	"github.com/starmast/epub-edit/internal/home"
	"github.com/starmast/epub-edit/internal/llm"
	"github.com/starmast/epub-edit/internal/run"
	"github.com/starmast/epub-edit/internal/store"
	"github.com/starmast/epub-edit/internal/tokens"
)

var (
	runStart int
	runEnd   int
	runStyle string
)

var runCmd = &cobra.Command{
	Use:   "run <project>",
	Short: "Edit a project's chapters and wait for completion",
	Long: `Run the editing pipeline over a project's chapters and block until it
finishes. Progress is printed as chapters complete.

Examples:
  epubedit run mybook                   # Edit every chapter
  epubedit run mybook --start 5 --end 9 # Edit a chapter range
  epubedit run mybook --style heavy     # Use the aggressive editing prompt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		gateway, err := buildGateway(cfg, logger)
		if err != nil {
			return err
		}

		counter, err := tokens.NewCounter()
		if err != nil {
			logger.Warn("token counting disabled", "error", err)
			counter = nil
		}

		fs, err := store.NewFileStore(h, args[0], logger)
		if err != nil {
			return err
		}

		style := cfg.Processing.PromptStyle
		if runStyle != "" {
			style = runStyle
		}

		runner := run.New(run.Config{
			Store:            fs,
			Gateway:          gateway,
			Notifier:         progressPrinter{},
			Logger:           logger,
			StartChapter:     runStart,
			EndChapter:       runEnd,
			Workers:          cfg.Processing.Workers,
			ChaptersPerBatch: cfg.Processing.ChaptersPerBatch,
			PromptStyle:      llm.PromptStyle(style),
			MaxTokens:        cfg.LLM.MaxTokens,
			ContextWindow:    cfg.LLM.ContextWindow,
			SafetyBuffer:     cfg.Processing.SafetyBuffer,
			Counter:          counter,
		})

		if err := runner.Start(ctx); err != nil {
			return err
		}
		<-runner.Done()

		status := runner.Status()
		fmt.Printf("\nRun %s: %s\n", status.ID, status.State)
		fmt.Printf("  Completed: %d\n", status.Completed)
		fmt.Printf("  Failed:    %d\n", status.Failed)
		fmt.Printf("  Skipped:   %d\n", status.Skipped)
		if status.State == run.StateFailed {
			return fmt.Errorf("run failed: %s", status.Error)
		}
		return nil
	},
}

// progressPrinter prints run events to stdout for interactive use.
type progressPrinter struct{}

func (progressPrinter) Notify(ev run.Event) {
	switch ev.Type {
	case run.EventBatchStarted:
		fmt.Printf("editing chapters %v\n", ev.Chapters)
	case run.EventChapterCompleted:
		if ev.Stats != nil {
			fmt.Printf("chapter %d done (%d edits)\n", ev.ChapterNumber, ev.Stats.TotalEdits)
		} else {
			fmt.Printf("chapter %d done\n", ev.ChapterNumber)
		}
	case run.EventChapterFailed:
		fmt.Printf("chapter %d FAILED: %s\n", ev.ChapterNumber, ev.Error)
	}
}

func init() {
	runCmd.Flags().IntVar(&runStart, "start", 1, "First chapter to edit")
	runCmd.Flags().IntVar(&runEnd, "end", 0, "Last chapter to edit (0 = through the end)")
	runCmd.Flags().StringVar(&runStyle, "style", "", "Prompt style: default, light or heavy")

	rootCmd.AddCommand(runCmd)
}

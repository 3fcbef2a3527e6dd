package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/starmast/epub-edit/internal/config"
	"github.com/starmast/epub-edit/internal/llm"
)

var llmTestCmd = &cobra.Command{
	Use:   "llm-test",
	Short: "Verify the configured model endpoint responds",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfg := cfgMgr.Get()

		gateway, err := buildGateway(cfg, logger)
		if err != nil {
			return err
		}

		start := time.Now()
		if err := llm.TestConnection(cmd.Context(), gateway); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		fmt.Printf("ok: %s responded in %s\n", gateway.Name(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(llmTestCmd)
}

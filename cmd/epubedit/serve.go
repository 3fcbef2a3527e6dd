package main

import (
	"github.com/spf13/cobra"

	"github.com/starmast/epub-edit/internal/config"
	"github.com/starmast/epub-edit/internal/home"
	"github.com/starmast/epub-edit/internal/server"
	"github.com/starmast/epub-edit/internal/tokens"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the epubedit server",
	Long: `Start the epubedit HTTP server.

The server provides:
  - POST /runs and the pause/resume/stop controls
  - GET  /projects/{project}/chapters/{num}/diff
  - GET  /events (server-sent progress events)
  - POST /llm/test

Examples:
  epubedit serve                    # Start on default port 8080
  epubedit serve --port 3000        # Start on custom port
  epubedit serve --host 0.0.0.0     # Bind to all interfaces`,
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
		cfgMgr.WatchConfig()

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

		host := serveHost
		if host == "" {
			host = cfg.Server.Host
		}
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Home:          h,
			ConfigManager: cfgMgr,
			Gateway:       gateway,
			Counter:       counter,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}

// Package server exposes the editing pipeline over HTTP: starting and
// controlling runs, inspecting chapter diffs, and streaming progress events.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/starmast/epub-edit/internal/config"
	"github.com/starmast/epub-edit/internal/home"
	"github.com/starmast/epub-edit/internal/llm"
	"github.com/starmast/epub-edit/internal/notify"
	"github.com/starmast/epub-edit/internal/run"
	"github.com/starmast/epub-edit/internal/tokens"
)

// Server is the epubedit HTTP server.
type Server struct {
	httpServer *http.Server
	home       *home.Dir
	configMgr  *config.Manager
	gateway    llm.Client
	counter    *tokens.Counter
	runs       *run.Manager
	hub        *notify.Hub
	logger     *slog.Logger

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port int
	// Home is the epubedit home directory holding projects
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Gateway is the model client used by runs and connection tests
	Gateway llm.Client
	// Counter enables prompt token budgeting when set
	Counter *tokens.Counter
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("model gateway is required")
	}

	s := &Server{
		home:      cfg.Home,
		configMgr: cfg.ConfigManager,
		gateway:   cfg.Gateway,
		counter:   cfg.Counter,
		runs:      run.NewManager(),
		hub:       notify.NewHub(cfg.Logger),
		logger:    cfg.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server. It blocks until the context is cancelled or
// an error occurs, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops active runs and drains the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	s.runs.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Hub returns the event hub so callers can register extra subscribers.
func (s *Server) Hub() *notify.Hub {
	return s.hub
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starmast/epub-edit/internal/config"
	"github.com/starmast/epub-edit/internal/llm"
)

// buildGateway constructs the model client selected by the configuration.
func buildGateway(cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	l := cfg.LLM
	timeout := time.Duration(l.TimeoutSeconds) * time.Second

	switch l.Provider {
	case "openai-compatible", "":
		return llm.NewHTTPClient(llm.HTTPConfig{
			Endpoint:          l.Endpoint,
			APIKey:            cfg.ResolvedAPIKey(),
			Model:             l.Model,
			Temperature:       l.Temperature,
			MaxRetries:        l.MaxRetries,
			Timeout:           timeout,
			RequestsPerMinute: l.RequestsPerMinute,
			Logger:            logger,
		}), nil
	case "openai":
		return llm.NewSDKClient(llm.SDKConfig{
			APIKey:      cfg.ResolvedAPIKey(),
			Model:       l.Model,
			Temperature: l.Temperature,
			MaxRetries:  l.MaxRetries,
			Timeout:     timeout,
			BaseURL:     l.Endpoint,
			Logger:      logger,
		}), nil
	case "mock":
		return llm.NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", l.Provider)
	}
}

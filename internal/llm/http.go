package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const HTTPClientName = "openai-compatible"

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	// Endpoint is the API base URL; "/chat/completions" is appended if the
	// path is not already present.
	Endpoint string
	APIKey   string
	Model    string

	Temperature float64

	// MaxRetries is the total attempt cap (default 3).
	MaxRetries int
	// BackoffBase is the unit for exponential backoff: attempt n sleeps
	// BackoffBase * 2^n. Default 1s.
	BackoffBase time.Duration
	// Timeout is the per-request HTTP timeout (default 120s).
	Timeout time.Duration
	// RequestsPerMinute bounds request admission (default 60).
	RequestsPerMinute int

	Logger *slog.Logger
}

// HTTPClient talks to any OpenAI-compatible chat-completions endpoint with
// bearer-token auth. Rate limiting happens before the first attempt; the
// retry loop handles 429, 5xx and transport failures with exponential
// backoff, and fails immediately on other client errors.
type HTTPClient struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxRetries  int
	backoffBase time.Duration
	client      *http.Client
	limiter     *RateLimiter
	logger      *slog.Logger

	// sleep is swappable in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration)
}

// NewHTTPClient creates a client for the configured endpoint.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}

	return &HTTPClient{
		endpoint:    endpoint,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		client:      &http.Client{Timeout: cfg.Timeout},
		limiter:     NewRateLimiter(cfg.RequestsPerMinute),
		logger:      logger.With("component", "llm_gateway"),
		sleep:       sleepCtx,
	}
}

// Name returns the client identifier.
func (c *HTTPClient) Name() string {
	return HTTPClientName
}

// Complete sends one chat completion request with retries.
func (c *HTTPClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	payload := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: c.temperature,
		MaxTokens:   req.MaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, retryable, err := c.doAttempt(ctx, body)
		if err == nil {
			result.RequestID = requestID
			result.Attempts = attempt + 1
			return result, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		c.logger.Warn("completion attempt failed, backing off",
			"request_id", requestID, "attempt", attempt+1, "error", err)
		c.backoff(ctx, attempt)
	}

	return nil, fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries, lastErr)
}

// doAttempt performs one HTTP round trip. The second return reports whether
// the failure is retryable (429, 5xx, transport or decode errors).
func (c *HTTPClient) doAttempt(ctx context.Context, body []byte) (*Result, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("rate limited (status 429): %s", respBody)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error (status %d): %s", resp.StatusCode, respBody)
	case resp.StatusCode != http.StatusOK:
		return nil, false, &ClientError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return nil, true, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, true, fmt.Errorf("empty choices in response (model=%s)", cr.Model)
	}

	model := cr.Model
	if model == "" {
		model = c.model
	}

	return &Result{
		Content: cr.Choices[0].Message.Content,
		Usage:   cr.Usage,
		Model:   model,
	}, false, nil
}

// backoff sleeps 2^attempt units, respecting context cancellation.
func (c *HTTPClient) backoff(ctx context.Context, attempt int) {
	c.sleep(ctx, c.backoffBase*time.Duration(1<<attempt))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// OpenAI-compatible wire types.

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Verify interface
var _ Client = (*HTTPClient)(nil)

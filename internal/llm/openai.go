package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/google/uuid"
)

const SDKClientName = "openai"

// SDKConfig configures an SDKClient.
type SDKConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxRetries  int           // SDK transport retries (default 3)
	Timeout     time.Duration // HTTP timeout (default 120s)
	BaseURL     string        // optional (tests)
	Logger      *slog.Logger
}

// SDKClient implements Client using the official OpenAI SDK. Used when the
// configured provider is first-party OpenAI; the SDK handles transport
// retries itself, so this client only maps errors into the gateway taxonomy.
type SDKClient struct {
	model       string
	temperature float64
	client      openai.Client
	logger      *slog.Logger
}

// NewSDKClient creates a new SDK-backed client.
func NewSDKClient(cfg SDKConfig) *SDKClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &SDKClient{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      openai.NewClient(opts...),
		logger:      logger.With("component", "llm_gateway", "provider", SDKClientName),
	}
}

// Name returns the client identifier.
func (c *SDKClient) Name() string {
	return SDKClientName
}

// Complete sends one chat completion request via the SDK.
func (c *SDKClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(c.temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapSDKError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response (model=%s)", completion.Model)
	}

	return &Result{
		Content: completion.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
		Model:     completion.Model,
		RequestID: requestID,
		Attempts:  1,
	}, nil
}

// mapSDKError translates SDK errors into the gateway error taxonomy:
// terminal 4xx become ClientError, everything else passes through.
func mapSDKError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests {
			return &ClientError{StatusCode: apiErr.StatusCode, Body: apiErr.Message}
		}
		return fmt.Errorf("OpenAI error (status %d): %s", apiErr.StatusCode, apiErr.Message)
	}
	return err
}

// Verify interface
var _ Client = (*SDKClient)(nil)

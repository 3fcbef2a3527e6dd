// Package llm provides the gateway to chat-completion endpoints: request and
// result types, an OpenAI-compatible HTTP client with retry and backoff, an
// SDK-backed client for first-party OpenAI, and the editing system prompts.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Request is a chat completion request.
type Request struct {
	Messages  []Message
	MaxTokens int // 0 means provider default

	// RequestID is generated if empty.
	RequestID string
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is a successful completion.
type Result struct {
	Content   string `json:"content"`
	Usage     Usage  `json:"usage"`
	Model     string `json:"model"`
	RequestID string `json:"request_id"`
	Attempts  int    `json:"attempts"`
}

// Client is the gateway interface used by the scheduler.
type Client interface {
	// Complete sends one chat completion request. Implementations retry
	// transient failures internally; a returned error is terminal for the
	// request.
	Complete(ctx context.Context, req *Request) (*Result, error)

	// Name returns the client identifier (e.g. "openai-compatible").
	Name() string
}

// ClientError is a terminal HTTP client error (4xx other than 429). These
// are never retried; Body carries the server-provided detail.
type ClientError struct {
	StatusCode int
	Body       string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.StatusCode, e.Body)
}

// IsClientError reports whether err is a terminal client error.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is a Client for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // fail after N requests (0 = never)
	ResponseText string

	// Responses, when non-empty, are returned in order per request; the
	// last entry repeats once exhausted.
	Responses []string

	requestCount atomic.Int64
}

// NewMockClient creates a mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: NoEditsSentinelResponse,
	}
}

// NoEditsSentinelResponse is a convenient default body for tests.
const NoEditsSentinelResponse = "NO_EDITS_NEEDED"

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Complete returns the scripted response.
func (c *MockClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	count := c.requestCount.Add(1)

	if c.ShouldFail {
		return nil, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return nil, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	content := c.ResponseText
	if len(c.Responses) > 0 {
		idx := int(count) - 1
		if idx >= len(c.Responses) {
			idx = len(c.Responses) - 1
		}
		content = c.Responses[idx]
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}

	return &Result{
		Content: content,
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: len(content) / 4,
			TotalTokens:      promptTokens + len(content)/4,
		},
		Model:     "mock-model",
		RequestID: fmt.Sprintf("mock-%d", count),
		Attempts:  1,
	}, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Verify interface
var _ Client = (*MockClient)(nil)

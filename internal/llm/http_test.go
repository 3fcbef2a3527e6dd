package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, endpoint string) *HTTPClient {
	t.Helper()
	c := NewHTTPClient(HTTPConfig{
		Endpoint:          endpoint,
		APIKey:            "test-key",
		Model:             "test-model",
		MaxRetries:        3,
		BackoffBase:       time.Millisecond,
		RequestsPerMinute: 100000,
	})
	return c
}

const successBody = `{
	"model": "test-model",
	"choices": [{"message": {"role": "assistant", "content": "R∆1∆teh⟹the"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 100, "completion_tokens": 10, "total_tokens": 110}
}`

func TestHTTPClient_Complete(t *testing.T) {
	t.Run("success on first attempt", func(t *testing.T) {
		var requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
				t.Errorf("unexpected auth header: %q", got)
			}
			if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Write([]byte(successBody))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		result, err := c.Complete(context.Background(), &Request{
			Messages: []Message{{Role: "user", Content: "hi"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Content != "R∆1∆teh⟹the" {
			t.Errorf("unexpected content: %q", result.Content)
		}
		if result.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", result.Attempts)
		}
		if result.Usage.TotalTokens != 110 {
			t.Errorf("unexpected usage: %+v", result.Usage)
		}
		if requests.Load() != 1 {
			t.Errorf("expected 1 request, got %d", requests.Load())
		}
	})

	t.Run("retries 429 with backoff", func(t *testing.T) {
		var requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(successBody))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		var sleeps []time.Duration
		c.sleep = func(ctx context.Context, d time.Duration) {
			sleeps = append(sleeps, d)
		}

		result, err := c.Complete(context.Background(), &Request{
			Messages: []Message{{Role: "user", Content: "hi"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", result.Attempts)
		}
		if requests.Load() != 3 {
			t.Errorf("expected 3 requests, got %d", requests.Load())
		}
		// Exponential: base, then 2x base.
		if len(sleeps) != 2 || sleeps[0] != time.Millisecond || sleeps[1] != 2*time.Millisecond {
			t.Errorf("unexpected backoff sequence: %v", sleeps)
		}
	})

	t.Run("client error fails immediately", func(t *testing.T) {
		var requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "bad request"}`))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		_, err := c.Complete(context.Background(), &Request{
			Messages: []Message{{Role: "user", Content: "hi"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		var ce *ClientError
		if !errors.As(err, &ce) {
			t.Fatalf("expected ClientError, got %T: %v", err, err)
		}
		if ce.StatusCode != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", ce.StatusCode)
		}
		if requests.Load() != 1 {
			t.Errorf("client errors must not retry: %d requests", requests.Load())
		}
	})

	t.Run("server errors exhaust retries", func(t *testing.T) {
		var requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		c.sleep = func(ctx context.Context, d time.Duration) {}

		_, err := c.Complete(context.Background(), &Request{
			Messages: []Message{{Role: "user", Content: "hi"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "after 3 attempts") {
			t.Errorf("unexpected error: %v", err)
		}
		if requests.Load() != 3 {
			t.Errorf("expected 3 requests, got %d", requests.Load())
		}
	})

	t.Run("empty choices is retryable", func(t *testing.T) {
		var requests atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				w.Write([]byte(`{"model": "test-model", "choices": []}`))
				return
			}
			w.Write([]byte(successBody))
		}))
		defer srv.Close()

		c := newTestClient(t, srv.URL)
		c.sleep = func(ctx context.Context, d time.Duration) {}

		result, err := c.Complete(context.Background(), &Request{
			Messages: []Message{{Role: "user", Content: "hi"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", result.Attempts)
		}
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		c := newTestClient(t, srv.URL)
		c.sleep = func(ctx context.Context, d time.Duration) {
			cancel()
		}

		_, err := c.Complete(ctx, &Request{
			Messages: []Message{{Role: "user", Content: "hi"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestNewHTTPClient_Endpoint(t *testing.T) {
	t.Run("appends chat completions path", func(t *testing.T) {
		c := NewHTTPClient(HTTPConfig{Endpoint: "https://example.com/v1"})
		if c.endpoint != "https://example.com/v1/chat/completions" {
			t.Errorf("unexpected endpoint: %s", c.endpoint)
		}
	})

	t.Run("keeps full path", func(t *testing.T) {
		c := NewHTTPClient(HTTPConfig{Endpoint: "https://example.com/v1/chat/completions"})
		if c.endpoint != "https://example.com/v1/chat/completions" {
			t.Errorf("unexpected endpoint: %s", c.endpoint)
		}
	})
}

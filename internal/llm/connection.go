package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
)

// TestConnection sends a tiny completion to verify the endpoint is reachable
// and the credentials work. The probe itself is retried a few times so a
// transient network blip does not fail a settings check; terminal client
// errors (bad key, bad model) abort immediately.
func TestConnection(ctx context.Context, client Client) error {
	err := retry.Do(
		func() error {
			_, err := client.Complete(ctx, &Request{
				Messages: []Message{
					{Role: "user", Content: "Respond with 'OK' if you can read this."},
				},
				MaxTokens: 10,
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.RetryIf(func(err error) bool {
			var ce *ClientError
			return !errors.As(err, &ce)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

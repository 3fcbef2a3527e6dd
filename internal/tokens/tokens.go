// Package tokens estimates token counts for prompt budgeting.
package tokens

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens using the cl100k_base encoding, a reasonable
// approximation for the chat models this pipeline targets.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter creates a counter. The vocabulary is embedded in the tokenizer
// package, so this never touches the network.
func NewCounter() (*Counter, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &Counter{codec: codec}, nil
}

// Count returns the token count for text, 0 on encoding failure.
func (c *Counter) Count(text string) int {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}

// ResponseBudget returns how many completion tokens a request can afford:
// the context window minus the prompt (system + body) and a safety buffer.
// Returns 0 when the prompt alone exceeds the window, which callers should
// treat as "batch too large".
func (c *Counter) ResponseBudget(systemPrompt, body string, contextWindow, safetyBuffer int) int {
	used := c.Count(systemPrompt) + c.Count(body) + safetyBuffer
	if used >= contextWindow {
		return 0
	}
	return contextWindow - used
}

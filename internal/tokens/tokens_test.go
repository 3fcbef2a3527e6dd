package tokens

import "testing"

func TestCounter_Count(t *testing.T) {
	c, err := NewCounter()
	if err != nil {
		t.Fatalf("NewCounter failed: %v", err)
	}

	t.Run("empty string", func(t *testing.T) {
		if got := c.Count(""); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})

	t.Run("counts grow with text", func(t *testing.T) {
		short := c.Count("Hello world.")
		long := c.Count("Hello world. This is a much longer sentence with many more words in it.")
		if short <= 0 {
			t.Errorf("expected positive count, got %d", short)
		}
		if long <= short {
			t.Errorf("longer text should count more tokens: %d vs %d", long, short)
		}
	})
}

func TestCounter_ResponseBudget(t *testing.T) {
	c, err := NewCounter()
	if err != nil {
		t.Fatalf("NewCounter failed: %v", err)
	}

	t.Run("budget is window minus prompt and buffer", func(t *testing.T) {
		system := "You are an editor."
		body := "1: Some chapter text."
		used := c.Count(system) + c.Count(body)

		budget := c.ResponseBudget(system, body, 1000, 100)
		if budget != 1000-used-100 {
			t.Errorf("expected %d, got %d", 1000-used-100, budget)
		}
	})

	t.Run("oversized prompt returns zero", func(t *testing.T) {
		if got := c.ResponseBudget("system", "body", 5, 100); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
	})
}

package chat

import "fmt"

// FitTokens removes the oldest turns until the conversation fits in limit
// tokens. The latest turn is always kept, even when it alone exceeds limit.
func FitTokens(msgs []Message, limit int, count func(string) (int, error)) ([]Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("token limit must be > 0, got %d", limit)
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	sizes := make([]int, len(msgs))
	total := 0
	for i, m := range msgs {
		n, err := count(m.Content)
		if err != nil {
			return nil, fmt.Errorf("count tokens for turn %d: %w", i, err)
		}
		sizes[i] = n
		total += n
	}

	start := 0
	for start < len(msgs)-1 && total > limit {
		total -= sizes[start]
		start++
	}
	// a window must not open on an assistant reply
	for start < len(msgs)-1 && msgs[start].Role == RoleAssistant {
		start++
	}
	return msgs[start:], nil
}

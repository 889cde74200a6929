package chat

import (
	"errors"
	"strings"
	"sync"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of an AI-assisted conversation. Streaming is true while
// the assistant reply is still being received.
type Message struct {
	Role      string `json:"role" binding:"required,oneof=user assistant"`
	Content   string `json:"content"`
	Streaming bool   `json:"streaming,omitempty"`
}

var ErrStreamClosed = errors.New("stream already completed")

// Accumulator folds in-order text chunks into a single assistant message.
type Accumulator struct {
	mu   sync.Mutex
	buf  strings.Builder
	done bool
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append adds a chunk and returns the message as it stands.
func (a *Accumulator) Append(chunk string) (Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return a.snapshot(), ErrStreamClosed
	}
	a.buf.WriteString(chunk)
	return a.snapshot(), nil
}

// Done marks the stream complete; the returned message is no longer streaming.
func (a *Accumulator) Done() Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.done = true
	return a.snapshot()
}

func (a *Accumulator) Message() Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

func (a *Accumulator) snapshot() Message {
	return Message{
		Role:      RoleAssistant,
		Content:   a.buf.String(),
		Streaming: !a.done,
	}
}

// Transcript renders messages as "role: content" lines, skipping empty turns.
func Transcript(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(content)
	}
	return b.String()
}

package ai

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/pkg/chat"
)

type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

func NewAnthropic(cfg *config.Config) *Anthropic {
	return &Anthropic{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.AI.Anthropic.APIKey)),
		model:     cfg.AI.Anthropic.Model,
		maxTokens: cfg.AI.MaxTokens,
	}
}

// toAnthropicMessages folds system turns into the system prompt; the Messages
// API only accepts user and assistant roles.
func toAnthropicMessages(req Request) (string, []anthropic.MessageParam) {
	system := req.System
	out := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case chat.RoleSystem:
			system = strings.TrimSpace(system + "\n\n" + m.Content)
		case chat.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, out
}

func (a *Anthropic) params(req Request) anthropic.MessageNewParams {
	system, msgs := toAnthropicMessages(req)
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens(req, a.maxTokens)),
		Messages:  msgs,
	}
	if system != "" {
		p.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return p
}

func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	msg, err := a.client.Messages.New(ctx, a.params(req))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func (a *Anthropic) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	stream := a.client.Messages.NewStreaming(ctx, a.params(req))
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if d, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && d.Text != "" {
				if err := onChunk(d.Text); err != nil {
					return err
				}
			}
		}
	}
	return stream.Err()
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/ai"
	"github.com/ohfdesk/ohfdesk/internal/pkg/chat"
	"github.com/ohfdesk/ohfdesk/internal/pkg/tokenizer"
	"github.com/ohfdesk/ohfdesk/internal/telemetry"
	"go.uber.org/zap"
)

// maxChatTurns bounds the history forwarded to the model.
const maxChatTurns = 40

type ChatService interface {
	// Stream calls onDelta for every chunk with the message accumulated so far
	// and returns the completed assistant message.
	Stream(ctx context.Context, msgs []chat.Message, onDelta func(chunk string, msg chat.Message) error) (chat.Message, error)
	Transcribe(ctx context.Context, filename string, data []byte) (string, error)
}

type chatService struct {
	completer   ai.Completer
	transcriber ai.Transcriber
	cfg         *config.Config
	log         *zap.Logger
}

func NewChatService(completer ai.Completer, transcriber ai.Transcriber, cfg *config.Config, log *zap.Logger) ChatService {
	return &chatService{completer: completer, transcriber: transcriber, cfg: cfg, log: log}
}

// conversation drops system and empty turns and keeps the latest maxChatTurns.
func conversation(msgs []chat.Message) ([]chat.Message, error) {
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role != chat.RoleUser && m.Role != chat.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, chat.Message{Role: m.Role, Content: m.Content})
	}
	if len(out) == 0 || out[len(out)-1].Role != chat.RoleUser {
		return nil, fmt.Errorf("%w: conversation must end with a user message", ErrInvalidInput)
	}
	if len(out) > maxChatTurns {
		out = out[len(out)-maxChatTurns:]
	}
	return out, nil
}

func (s *chatService) Stream(ctx context.Context, msgs []chat.Message, onDelta func(chunk string, msg chat.Message) error) (chat.Message, error) {
	history, err := conversation(msgs)
	if err != nil {
		return chat.Message{}, err
	}
	history = s.fit(history)

	acc := chat.NewAccumulator()
	start := time.Now()
	err = s.completer.Stream(ctx, ai.Request{
		System:    ai.ChatSystemPrompt,
		Messages:  history,
		MaxTokens: s.cfg.AI.MaxTokens,
	}, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		m, err := acc.Append(chunk)
		if err != nil {
			return err
		}
		return onDelta(chunk, m)
	})
	telemetry.RecordAIRequest(ctx, "chat", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		s.log.Warn("chat stream failed", zap.Int("turns", len(history)), zap.Error(err))
		return acc.Message(), err
	}
	return acc.Done(), nil
}

// fit trims history to ai.chatTokenLimit. Without a tokenizer the turn cap alone applies.
func (s *chatService) fit(history []chat.Message) []chat.Message {
	if s.cfg.AI.ChatTokenLimit <= 0 {
		return history
	}
	fitted, err := chat.FitTokens(history, s.cfg.AI.ChatTokenLimit, tokenizer.CountTokens)
	if err != nil {
		if !errors.Is(err, tokenizer.ErrNotInitialized) {
			s.log.Warn("chat history not trimmed", zap.Error(err))
		}
		return history
	}
	return fitted
}

func (s *chatService) Transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: audio file is empty", ErrInvalidInput)
	}
	start := time.Now()
	text, err := s.transcriber.Transcribe(ctx, filename, bytes.NewReader(data))
	telemetry.RecordAIRequest(ctx, "transcribe", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Package ai wraps the LLM and transcription providers behind small interfaces
// so services can draft tickets, stream assistant replies and summarise work
// sessions without knowing which vendor is configured.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/pkg/chat"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

var ErrNotConfigured = errors.New("ai provider not configured")

type Request struct {
	System    string
	Messages  []chat.Message
	MaxTokens int
}

// Completer produces assistant replies. Stream calls onChunk for every text
// delta, in order; returning an error from onChunk aborts the stream.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request, onChunk func(string) error) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// NewCompleter returns the provider selected by cfg.AI.Provider.
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.AI.Provider {
	case ProviderOpenAI, "":
		if cfg.AI.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("%w: openai api key missing", ErrNotConfigured)
		}
		return NewOpenAI(cfg), nil
	case ProviderAnthropic:
		if cfg.AI.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("%w: anthropic api key missing", ErrNotConfigured)
		}
		return NewAnthropic(cfg), nil
	case ProviderGemini:
		if cfg.AI.Gemini.APIKey == "" {
			return nil, fmt.Errorf("%w: gemini api key missing", ErrNotConfigured)
		}
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.AI.Provider)
	}
}

// NewTranscriber returns the OpenAI transcriber; it is the only provider with an audio API wired.
func NewTranscriber(cfg *config.Config) (Transcriber, error) {
	if cfg.AI.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("%w: transcription needs an openai api key", ErrNotConfigured)
	}
	return NewOpenAI(cfg), nil
}

func maxTokens(req Request, fallback int) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if fallback > 0 {
		return fallback
	}
	return 1024
}

// Unavailable is used when no provider is configured; every call fails with ErrNotConfigured.
type Unavailable struct{ Reason error }

func (u Unavailable) err() error {
	if u.Reason != nil {
		return u.Reason
	}
	return ErrNotConfigured
}

func (u Unavailable) Complete(context.Context, Request) (string, error) { return "", u.err() }

func (u Unavailable) Stream(context.Context, Request, func(string) error) error { return u.err() }

func (u Unavailable) Transcribe(context.Context, string, io.Reader) (string, error) {
	return "", u.err()
}

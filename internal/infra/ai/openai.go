package ai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/pkg/chat"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAI struct {
	client             openai.Client
	model              string
	transcriptionModel string
	maxTokens          int
}

func NewOpenAI(cfg *config.Config) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.AI.OpenAI.APIKey)}
	if cfg.AI.OpenAI.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.AI.OpenAI.BaseURL))
	}
	return &OpenAI{
		client:             openai.NewClient(opts...),
		model:              cfg.AI.OpenAI.Model,
		transcriptionModel: cfg.AI.OpenAI.TranscriptionModel,
		maxTokens:          cfg.AI.MaxTokens,
	}
}

func toOpenAIMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (o *OpenAI) params(req Request) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		Messages:            toOpenAIMessages(req),
		MaxCompletionTokens: openai.Int(int64(maxTokens(req, o.maxTokens))),
	}
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(req))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := onChunk(delta); err != nil {
			return err
		}
	}
	return stream.Err()
}

func (o *OpenAI) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(audio, filename, ""),
		Model: openai.AudioModel(o.transcriptionModel),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

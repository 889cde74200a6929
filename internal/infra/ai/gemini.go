package ai

import (
	"context"
	"fmt"

	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/pkg/chat"
	"google.golang.org/genai"
)

type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func NewGemini(ctx context.Context, cfg *config.Config) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.AI.Gemini.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.AI.Gemini.Model, maxTokens: cfg.AI.MaxTokens}, nil
}

func toGeminiContents(req Request) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	if req.System != "" {
		system = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	out := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == chat.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return system, out
}

func (g *Gemini) config(req Request, system *genai.Content) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: system,
		MaxOutputTokens:   int32(maxTokens(req, g.maxTokens)),
	}
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	system, contents := toGeminiContents(req)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.config(req, system))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (g *Gemini) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	system, contents := toGeminiContents(req)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, g.config(req, system)) {
		if err != nil {
			return err
		}
		if text := resp.Text(); text != "" {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
	return nil
}

package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"poststudio/internal/pkg/errors"
	"poststudio/internal/pkg/logger"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type GeminiConfig struct {
	APIKey string
	Model  string
	Log    *logger.Logger
}

// Gemini asks a Gemini model for suggestions through the Gemini API backend.
type Gemini struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("suggest: Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}

	return &Gemini{client: client, model: model, log: log.WithComponent("suggest.gemini")}, nil
}

func (g *Gemini) SuggestTitle(ctx context.Context, text string) (string, error) {
	out, err := g.generate(ctx, "suggest.title", titlePrompt(text))
	if err != nil {
		return "", err
	}
	title := cleanTitle(out)
	if title == "" {
		return "", errors.New(errors.CodeUnavailable, "model returned an empty title")
	}
	return title, nil
}

func (g *Gemini) SuggestCaptions(ctx context.Context, text, prompt string) ([]string, error) {
	out, err := g.generate(ctx, "suggest.captions", captionsPrompt(text, prompt))
	if err != nil {
		return nil, err
	}
	captions := splitCaptions(out)
	if len(captions) == 0 {
		return nil, errors.New(errors.CodeUnavailable, "model returned no captions")
	}
	return captions, nil
}

func (g *Gemini) generate(ctx context.Context, op, prompt string) (string, error) {
	start := time.Now()
	temperature := float32(0.8)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temperature,
	})
	if err != nil {
		g.log.FromContext(ctx).Error("generate content failed", "op", op, "model", g.model, "error", err.Error())
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, op, "text provider request failed")
	}

	g.log.FromContext(ctx).Debug("generate content done", "op", op, "model", g.model, "duration_ms", time.Since(start).Milliseconds())
	return resp.Text(), nil
}

var _ Suggester = (*Gemini)(nil)

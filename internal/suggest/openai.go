package suggest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"poststudio/internal/pkg/errors"
	"poststudio/internal/pkg/logger"
)

const DefaultOpenAIModel = openai.GPT4oMini

type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint (OpenAI compatible gateways, tests).
	BaseURL string
	Model   string
	Timeout time.Duration
	Log     *logger.Logger
}

// OpenAI asks a chat completion model for suggestions.
type OpenAI struct {
	client *openai.Client
	model  string
	log    *logger.Logger
}

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("suggest: OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		log:    log.WithComponent("suggest.openai"),
	}, nil
}

func (p *OpenAI) SuggestTitle(ctx context.Context, text string) (string, error) {
	out, err := p.complete(ctx, "suggest.title", titlePrompt(text), 60)
	if err != nil {
		return "", err
	}
	title := cleanTitle(out)
	if title == "" {
		return "", errors.New(errors.CodeUnavailable, "model returned an empty title")
	}
	return title, nil
}

func (p *OpenAI) SuggestCaptions(ctx context.Context, text, prompt string) ([]string, error) {
	out, err := p.complete(ctx, "suggest.captions", captionsPrompt(text, prompt), 400)
	if err != nil {
		return nil, err
	}
	captions := splitCaptions(out)
	if len(captions) == 0 {
		return nil, errors.New(errors.CodeUnavailable, "model returned no captions")
	}
	return captions, nil
}

func (p *OpenAI) complete(ctx context.Context, op, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.8,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		p.log.FromContext(ctx).Error("chat completion failed", "op", op, "model", p.model, "error", err.Error())
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, op, "text provider request failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(errors.CodeUnavailable, "text provider returned no choices")
	}

	p.log.FromContext(ctx).Debug("chat completion done",
		"op", op,
		"model", p.model,
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.Choices[0].Message.Content, nil
}

var _ Suggester = (*OpenAI)(nil)

package suggest

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderStatic = "static"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Options struct {
	Provider string
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
}

// New returns the Suggester named by opts.Provider. An empty name selects
// the static one.
func New(ctx context.Context, opts Options) (Suggester, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderStatic:
		return NewStatic(), nil
	case ProviderOpenAI:
		return NewOpenAI(opts.OpenAI)
	case ProviderGemini:
		return NewGemini(ctx, opts.Gemini)
	default:
		return nil, fmt.Errorf("unknown suggest provider: %s", opts.Provider)
	}
}

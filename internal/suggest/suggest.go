// Package suggest produces headline and caption suggestions for a post.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Suggester generates text for the editor's AI helpers.
type Suggester interface {
	SuggestTitle(ctx context.Context, text string) (string, error)
	SuggestCaptions(ctx context.Context, text, prompt string) ([]string, error)
}

// CaptionCount is how many captions a provider is asked for.
const CaptionCount = 4

const systemPrompt = "Você é editor de redes sociais de um portal de notícias brasileiro. Responda sempre em português do Brasil."

func titlePrompt(text string) string {
	return "Escreva um único título curto e chamativo (no máximo 90 caracteres) para a notícia abaixo. " +
		"Responda apenas com o título, sem aspas.\n\n" + text
}

func captionsPrompt(text, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Escreva %d legendas diferentes para um post de Instagram sobre o conteúdo abaixo. ", CaptionCount)
	b.WriteString("Cada legenda em uma linha, com um emoji no início e uma chamada para interação.")
	if extra = strings.TrimSpace(extra); extra != "" {
		b.WriteString(" Instruções adicionais: ")
		b.WriteString(extra)
	}
	b.WriteString("\n\n")
	b.WriteString(text)
	return b.String()
}

// cleanTitle strips quotes and keeps the first non-empty line.
func cleanTitle(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"'“”*#`)
		if line != "" {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// splitCaptions turns a model answer into caption lines, dropping list
// markers such as "1." or "-".
func splitCaptions(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeftFunc(line, func(r rune) bool {
			return unicode.IsDigit(r) || r == '.' || r == ')' || r == '-' || r == '*' || r == '•'
		})
		line = strings.Trim(strings.TrimSpace(line), `"“”`)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == CaptionCount {
			break
		}
	}
	return out
}

package suggest

import (
	"context"
	"math/rand/v2"
)

var staticTitles = []string{
	"Descoberta revolucionária muda o futuro da tecnologia",
	"Nova pesquisa revela dados surpreendentes sobre o tema",
	"Especialistas analisam impacto das mudanças recentes",
	"Desenvolvimento inovador promete transformar o setor",
}

var staticCaptions = []string{
	"📰 Nova descoberta que vai mudar tudo! O que você acha?",
	"🔍 Dados surpreendentes revelados hoje. Compartilhe sua opinião!",
	"💡 Inovação que promete revolucionar o mercado. Comente abaixo!",
	"📊 Análise completa do que está acontecendo. Tag alguém que precisa saber!",
}

// Static returns canned suggestions. It ignores its input and never fails.
type Static struct {
	pick func(n int) int
}

func NewStatic() *Static {
	return &Static{pick: rand.IntN}
}

func (s *Static) SuggestTitle(_ context.Context, _ string) (string, error) {
	return staticTitles[s.pick(len(staticTitles))], nil
}

func (s *Static) SuggestCaptions(_ context.Context, _, _ string) ([]string, error) {
	return append([]string(nil), staticCaptions...), nil
}

var _ Suggester = (*Static)(nil)

// Package titles stores headlines typed in by editors.
package titles

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"poststudio/internal/pkg/errors"
)

type Title struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Store interface {
	Save(ctx context.Context, text string) (Title, error)
	// Recent returns up to limit titles, newest first.
	Recent(ctx context.Context, limit int) ([]Title, error)
}

const DefaultRecentLimit = 20

func newTitle(text string) (Title, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Title{}, errors.ValidationField("manualTitle", "title is required")
	}
	return Title{ID: uuid.NewString(), Text: text, CreatedAt: time.Now().UTC()}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return DefaultRecentLimit
	}
	return limit
}

// MemoryStore keeps titles for the life of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	titles []Title
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, text string) (Title, error) {
	t, err := newTitle(text)
	if err != nil {
		return Title{}, err
	}
	s.mu.Lock()
	s.titles = append(s.titles, t)
	s.mu.Unlock()
	return t, nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Title, error) {
	limit = clampLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Title, 0, min(limit, len(s.titles)))
	for i := len(s.titles) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.titles[i])
	}
	return out, nil
}

package titles

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"poststudio/internal/httpkit"
	"poststudio/internal/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS manual_titles (
	id         UUID PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PGStore keeps titles in PostgreSQL.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// EnsureSchema creates the manual_titles table if it is missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "titles.schema", "create manual_titles table")
	}
	return nil
}

func (s *PGStore) Save(ctx context.Context, text string) (Title, error) {
	t, err := newTitle(text)
	if err != nil {
		return Title{}, err
	}

	err = s.insert(ctx, &t)
	if httpkit.IsUndefinedTable(err) {
		if err = s.EnsureSchema(ctx); err == nil {
			err = s.insert(ctx, &t)
		}
	}
	if err != nil {
		return Title{}, errors.Wrap(err, "titles.save", "insert manual title")
	}
	return t, nil
}

func (s *PGStore) insert(ctx context.Context, t *Title) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO manual_titles (id, title)
		VALUES ($1, $2)
		RETURNING created_at
	`, t.ID, t.Text).Scan(&t.CreatedAt)
}

func (s *PGStore) Recent(ctx context.Context, limit int) ([]Title, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, title, created_at
		FROM manual_titles
		ORDER BY created_at DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		if httpkit.IsUndefinedTable(err) {
			return []Title{}, nil
		}
		return nil, errors.Wrap(err, "titles.recent", "list manual titles")
	}
	defer rows.Close()

	out := []Title{}
	for rows.Next() {
		var t Title
		if err := rows.Scan(&t.ID, &t.Text, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Ping is used by the health check.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PGStore)(nil)
)

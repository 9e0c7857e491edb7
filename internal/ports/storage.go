package ports

import (
	"context"
	"io"
	"time"
)

// Asset is a stored upload.
type Asset struct {
	// Name is the generated filename, unique within the store.
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// AssetStore keeps uploaded images in a flat namespace and exposes them by
// URL so the renderer can fetch them.
type AssetStore interface {
	// Save writes r under a fresh name built from prefix and the extension
	// of originalName.
	Save(ctx context.Context, r io.Reader, originalName, prefix string) (Asset, error)
	// Open returns the content of the asset with exactly this name.
	Open(ctx context.Context, name string) (io.ReadCloser, Asset, error)
	// Latest returns the most recently written image. It is not keyed by
	// anything the caller supplies.
	Latest(ctx context.Context) (Asset, error)
	// URL is the public address of name.
	URL(name string) string
}

// Package catalog holds the immutable table of renderer templates.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"poststudio/internal/models"
)

// DefaultKey is the template used when a request names an unknown key.
const DefaultKey = "feed_1_red"

// WatermarkKey is the template used by the apply_watermark action.
const WatermarkKey = "watermark"

// Catalog is a read-only template lookup. It is safe for concurrent use
// because nothing mutates it after construction.
type Catalog struct {
	byKey      map[string]models.Template
	defaultKey string
}

// New builds a catalog from templates. defaultKey must be present.
func New(templates []models.Template, defaultKey string) (*Catalog, error) {
	byKey := make(map[string]models.Template, len(templates))
	for _, t := range templates {
		t.Key = strings.TrimSpace(t.Key)
		if t.Key == "" {
			return nil, fmt.Errorf("catalog: template with empty key")
		}
		if strings.TrimSpace(t.ExternalID) == "" {
			return nil, fmt.Errorf("catalog: template %q has no external id", t.Key)
		}
		if !t.Category.Valid() {
			return nil, fmt.Errorf("catalog: template %q has unknown category %q", t.Key, t.Category)
		}
		if t.Width <= 0 || t.Height <= 0 {
			return nil, fmt.Errorf("catalog: template %q has invalid dimensions %dx%d", t.Key, t.Width, t.Height)
		}
		if _, dup := byKey[t.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate template key %q", t.Key)
		}
		byKey[t.Key] = t
	}

	if defaultKey == "" {
		defaultKey = DefaultKey
	}
	if _, ok := byKey[defaultKey]; !ok {
		return nil, fmt.Errorf("catalog: default template %q not in catalog", defaultKey)
	}

	return &Catalog{byKey: byKey, defaultKey: defaultKey}, nil
}

// Load reads templates from a JSON file when path is set, otherwise it uses
// the built-in table.
func Load(path, defaultKey string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return New(Builtin(), defaultKey)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	var templates []models.Template
	if err := json.Unmarshal(b, &templates); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
	}
	return New(templates, defaultKey)
}

// Get returns the template for key and whether it exists.
func (c *Catalog) Get(key string) (models.Template, bool) {
	t, ok := c.byKey[strings.TrimSpace(key)]
	return t, ok
}

// Lookup never fails: unknown keys resolve to the default template. The
// second return value is false when the fallback was used.
func (c *Catalog) Lookup(key string) (models.Template, bool) {
	if t, ok := c.Get(key); ok {
		return t, true
	}
	return c.byKey[c.defaultKey], false
}

// Default returns the fallback template.
func (c *Catalog) Default() models.Template {
	return c.byKey[c.defaultKey]
}

// List returns all templates sorted by key.
func (c *Catalog) List() []models.Template {
	out := make([]models.Template, 0, len(c.byKey))
	for _, t := range c.byKey {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.byKey)
}

package models

// Category classifies a template's output and drives which layers get filled.
type Category string

const (
	CategoryWatermark Category = "watermark"
	CategoryStory     Category = "story"
	CategoryReels     Category = "reels"
	CategoryFeed      Category = "feed"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWatermark, CategoryStory, CategoryReels, CategoryFeed:
		return true
	}
	return false
}

// Template describes a renderer-side layout. Values are immutable once the
// catalog is loaded.
type Template struct {
	Key         string   `json:"key"`
	ExternalID  string   `json:"uuid"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"type"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
}

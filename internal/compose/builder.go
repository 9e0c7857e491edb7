// Package compose turns a template choice, caption fields and an uploaded
// asset URL into the layer bindings and output settings the renderer expects.
package compose

import (
	"strings"
	"time"

	"poststudio/internal/catalog"
	contracts "poststudio/internal/contracts/renderer/v1"
	"poststudio/internal/models"
	"poststudio/internal/pkg/logger"
)

// Layer names defined by the renderer templates.
const (
	LayerImage      = "imgprincipal"
	LayerTitle      = "titulocopy"
	LayerSubject    = "assuntext"
	LayerPhotoCred  = "creditfoto"
	LayerCredits    = "credit"
	LayerBackground = "imgfundo"
)

const (
	GeneralCredits      = "Créditos gerais"
	StoryBackgroundURL  = "https://via.placeholder.com/1080x1920/FF0000/FFFFFF?text=FUNDO+VERMELHO"
	timestampLayout     = "20060102150405"
	outputImageFormat   = "auto"
	outputDPI           = 72
	outputColorMode     = "rgb"
	photoCreditTemplate = "FOTO: "
)

// Fields are the caption inputs supplied by the user.
type Fields struct {
	Title   string
	Subject string
	Credits string
}

type Request struct {
	TemplateKey string
	// Category overrides the template's own category when valid.
	Category models.Category
	AssetURL string
	Fields   Fields
}

type Result struct {
	Template      models.Template
	Category      models.Category
	Layers        contracts.Layers
	Modifications *contracts.Modifications
	// Fallback is true when TemplateKey was unknown and the default was used.
	Fallback bool
}

type Builder struct {
	catalog *catalog.Catalog
	log     *logger.Logger
	now     func() time.Time
}

type Option func(*Builder)

// WithClock fixes the time source used for output filenames.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func WithLogger(log *logger.Logger) Option {
	return func(b *Builder) { b.log = log }
}

func NewBuilder(c *catalog.Catalog, opts ...Option) *Builder {
	b := &Builder{catalog: c, log: logger.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithComponent("compose")
	return b
}

// Build never fails. Unknown template keys resolve to the catalog default.
func (b *Builder) Build(req Request) Result {
	tpl, found := b.catalog.Lookup(req.TemplateKey)

	category := tpl.Category
	if req.Category.Valid() {
		category = req.Category
	}

	layers := contracts.Layers{
		LayerImage: {Image: req.AssetURL},
	}

	f := req.Fields
	switch category {
	case models.CategoryFeed, models.CategoryWatermark:
		layers[LayerTitle] = contracts.Layer{Text: f.Title}
		if strings.TrimSpace(f.Subject) != "" {
			layers[LayerSubject] = contracts.Layer{Text: f.Subject}
		}
		if strings.TrimSpace(f.Credits) != "" {
			layers[LayerPhotoCred] = contracts.Layer{Text: photoCreditTemplate + f.Credits}
		}
		layers[LayerCredits] = contracts.Layer{Text: GeneralCredits}
	case models.CategoryStory:
		layers[LayerTitle] = contracts.Layer{Text: f.Title}
		layers[LayerBackground] = contracts.Layer{Image: StoryBackgroundURL}
	default:
		layers[LayerTitle] = contracts.Layer{Text: f.Title}
	}

	res := Result{
		Template:      tpl,
		Category:      category,
		Layers:        layers,
		Modifications: b.modifications(tpl, "instagram_"+string(category)),
		Fallback:      !found,
	}

	b.log.WithTemplate(tpl.Key).Debug("render request composed",
		"requested_key", req.TemplateKey,
		"fallback", res.Fallback,
		"category", string(category),
		"layers", layerNames(layers),
		"filename", res.Modifications.Filename,
	)
	return res
}

// BuildWatermark composes the watermark template with the image layer only.
func (b *Builder) BuildWatermark(assetURL string) Result {
	tpl, found := b.catalog.Lookup(catalog.WatermarkKey)
	res := Result{
		Template:      tpl,
		Category:      models.CategoryWatermark,
		Layers:        contracts.Layers{LayerImage: {Image: assetURL}},
		Modifications: b.modifications(tpl, "watermark"),
		Fallback:      !found,
	}
	b.log.WithTemplate(tpl.Key).Debug("watermark request composed", "fallback", res.Fallback, "filename", res.Modifications.Filename)
	return res
}

func (b *Builder) modifications(tpl models.Template, stem string) *contracts.Modifications {
	return &contracts.Modifications{
		Filename:    stem + "_" + b.now().Format(timestampLayout) + ".png",
		Width:       tpl.Width,
		Height:      tpl.Height,
		ImageFormat: outputImageFormat,
		DPI:         outputDPI,
		ColorMode:   outputColorMode,
	}
}

func layerNames(l contracts.Layers) []string {
	names := make([]string, 0, len(l))
	for k := range l {
		names = append(names, k)
	}
	return names
}

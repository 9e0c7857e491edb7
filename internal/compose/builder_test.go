package compose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poststudio/internal/catalog"
	"poststudio/internal/models"
)

const assetURL = "http://localhost:5000/uploads/post_20250101120000_abcd1234.png"

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	c, err := catalog.New(catalog.Builtin(), catalog.DefaultKey)
	require.NoError(t, err)
	fixed := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)
	return NewBuilder(c, WithClock(func() time.Time { return fixed }))
}

func TestBuildUnknownKeyFallsBack(t *testing.T) {
	b := newTestBuilder(t)

	res := b.Build(Request{TemplateKey: "no_such_template", AssetURL: assetURL, Fields: Fields{Title: "T"}})

	assert.True(t, res.Fallback)
	assert.Equal(t, catalog.DefaultKey, res.Template.Key)
	assert.Equal(t, models.CategoryFeed, res.Category)
	assert.Equal(t, assetURL, res.Layers[LayerImage].Image)
}

func TestBuildFeedWithoutOptionalFields(t *testing.T) {
	b := newTestBuilder(t)

	res := b.Build(Request{TemplateKey: "feed_1", AssetURL: assetURL, Fields: Fields{Title: "Manchete", Subject: "  "}})

	assert.False(t, res.Fallback)
	assert.Len(t, res.Layers, 3)
	assert.Equal(t, "Manchete", res.Layers[LayerTitle].Text)
	assert.Equal(t, GeneralCredits, res.Layers[LayerCredits].Text)
	assert.NotContains(t, res.Layers, LayerSubject)
	assert.NotContains(t, res.Layers, LayerPhotoCred)
}

func TestBuildFeedWithAllFields(t *testing.T) {
	b := newTestBuilder(t)

	res := b.Build(Request{
		TemplateKey: "feed_3_black",
		AssetURL:    assetURL,
		Fields:      Fields{Title: "Manchete", Subject: "Política", Credits: "Ana Lima"},
	})

	assert.Equal(t, "Política", res.Layers[LayerSubject].Text)
	assert.Equal(t, "FOTO: Ana Lima", res.Layers[LayerPhotoCred].Text)
	assert.Equal(t, GeneralCredits, res.Layers[LayerCredits].Text)
}

func TestBuildStoryAlwaysHasBackground(t *testing.T) {
	b := newTestBuilder(t)

	for _, f := range []Fields{{}, {Title: "x", Subject: "y", Credits: "z"}} {
		res := b.Build(Request{TemplateKey: "stories_1", AssetURL: assetURL, Fields: f})
		assert.Equal(t, StoryBackgroundURL, res.Layers[LayerBackground].Image)
		assert.Contains(t, res.Layers, LayerTitle)
		assert.NotContains(t, res.Layers, LayerCredits)
		assert.Equal(t, 1080, res.Modifications.Width)
		assert.Equal(t, 1920, res.Modifications.Height)
	}
}

func TestBuildReelsTitleOnly(t *testing.T) {
	b := newTestBuilder(t)

	res := b.Build(Request{TemplateKey: "reels_feed_2", AssetURL: assetURL, Fields: Fields{Title: "R", Credits: "ignored"}})

	assert.Len(t, res.Layers, 2)
	assert.Equal(t, "R", res.Layers[LayerTitle].Text)
}

func TestBuildCategoryOverride(t *testing.T) {
	b := newTestBuilder(t)

	res := b.Build(Request{TemplateKey: "feed_1", Category: models.CategoryStory, AssetURL: assetURL})
	assert.Equal(t, models.CategoryStory, res.Category)
	assert.Contains(t, res.Layers, LayerBackground)

	res = b.Build(Request{TemplateKey: "feed_1", Category: "carousel", AssetURL: assetURL})
	assert.Equal(t, models.CategoryFeed, res.Category)
}

func TestModifications(t *testing.T) {
	b := newTestBuilder(t)

	res := b.Build(Request{TemplateKey: "feed_2_white", AssetURL: assetURL})
	m := res.Modifications
	require.NotNil(t, m)
	assert.Equal(t, "instagram_feed_20250309140507.png", m.Filename)
	assert.Equal(t, 1200, m.Width)
	assert.Equal(t, 1200, m.Height)
	assert.Equal(t, "auto", m.ImageFormat)
	assert.Equal(t, 72, m.DPI)
	assert.Equal(t, "rgb", m.ColorMode)
}

func TestBuildWatermark(t *testing.T) {
	b := newTestBuilder(t)

	res := b.BuildWatermark(assetURL)

	assert.Equal(t, catalog.WatermarkKey, res.Template.Key)
	assert.Equal(t, "x9jxylt4vx2x0", res.Template.ExternalID)
	assert.Len(t, res.Layers, 1)
	assert.Equal(t, "watermark_20250309140507.png", res.Modifications.Filename)
}

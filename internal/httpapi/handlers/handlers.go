package handlers

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"poststudio/internal/catalog"
	"poststudio/internal/compose"
	"poststudio/internal/jobs"
	"poststudio/internal/pkg/logger"
	"poststudio/internal/ports"
	"poststudio/internal/renderer"
	"poststudio/internal/suggest"
	"poststudio/internal/titles"
)

// DefaultMaxUploadBytes bounds /api/process bodies when Deps leaves it unset.
const DefaultMaxUploadBytes = 64 << 20

type Deps struct {
	Log       *logger.Logger
	Catalog   *catalog.Catalog
	Builder   *compose.Builder
	Renderer  renderer.Client
	Tracker   *jobs.Tracker
	Assets    ports.AssetStore
	Suggester suggest.Suggester
	Titles    titles.Store

	// Optional backends, only used by the deep health check.
	Pool *pgxpool.Pool
	RDB  *redis.Client

	MaxUploadBytes int64
}

type Handler struct {
	log       *logger.Logger
	catalog   *catalog.Catalog
	builder   *compose.Builder
	renderer  renderer.Client
	tracker   *jobs.Tracker
	assets    ports.AssetStore
	suggester suggest.Suggester
	titles    titles.Store
	pool      *pgxpool.Pool
	rdb       *redis.Client
	maxUpload int64
	actions   map[string]actionFunc
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	h := &Handler{
		log:       log.WithComponent("httpapi"),
		catalog:   d.Catalog,
		builder:   d.Builder,
		renderer:  d.Renderer,
		tracker:   d.Tracker,
		assets:    d.Assets,
		suggester: d.Suggester,
		titles:    d.Titles,
		pool:      d.Pool,
		rdb:       d.RDB,
		maxUpload: maxUpload,
	}
	h.actions = map[string]actionFunc{
		ActionApplyWatermark:  h.applyWatermark,
		ActionGeneratePost:    h.generatePost,
		ActionGenerateTitle:   h.generateTitle,
		ActionGenerateCaption: h.generateCaptions,
		ActionSaveManualTitle: h.saveManualTitle,
	}
	return h
}

// Log exposes the handler logger to the router's error wrapper.
func (h *Handler) Log() *logger.Logger {
	return h.log
}

// NotFound answers unknown routes with the API failure envelope.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeFail(w, http.StatusNotFound, "rota não encontrada")
}

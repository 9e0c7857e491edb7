package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"poststudio/internal/httpapi/handlers"
	"poststudio/internal/httpkit"
	"poststudio/internal/pkg/middleware"
	"poststudio/internal/web"
)

type Deps struct {
	handlers.Deps

	CORSAllowedOrigins []string
	// RequestTimeout bounds /api requests. Zero disables it.
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	h := handlers.New(d.Deps)
	log := h.Log()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))

	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins:   d.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAgeSeconds:    600,
	}))

	wrap := func(fn middleware.ErrorHandlerFunc) http.HandlerFunc {
		return middleware.WrapHandler(log, fn)
	}

	// ---- UI ----
	r.Get("/", web.Index)
	r.Get("/health", h.Health)

	// ---- FILES ----
	r.Get("/uploads/{filename}", h.Upload)
	r.Get("/post/{slug}", h.PostImage)

	// ---- API ----
	r.Route("/api", func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(middleware.Timeout(d.RequestTimeout))
		}
		r.NotFound(h.NotFound)

		r.Post("/process", wrap(h.Process))
		r.Get("/check-image/{jobId}", wrap(h.CheckImage))
		r.Delete("/images/{jobId}", wrap(h.DeleteImage))
		r.Get("/templates", h.ListTemplates)
		r.Get("/titles", wrap(h.ListTitles))
	})

	return r
}

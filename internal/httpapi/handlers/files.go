package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"poststudio/internal/pkg/errors"
	"poststudio/internal/ports"
)

// Upload serves a stored asset by exact filename. The renderer fetches
// composition inputs from here.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	h.serveAsset(w, r, chi.URLParam(r, "filename"))
}

// PostImage serves the most recent upload. The slug is only logged: assets
// are not stored per post.
func (h *Handler) PostImage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	latest, err := h.assets.Latest(r.Context())
	if err != nil {
		if errors.IsNotFound(err) {
			http.Error(w, "Nenhuma imagem encontrada", http.StatusNotFound)
			return
		}
		h.log.LogError(r.Context(), "latest asset lookup failed", err, "slug", slug)
		http.Error(w, "Erro ao carregar imagem", http.StatusInternalServerError)
		return
	}

	h.log.FromContext(r.Context()).Debug("serving latest asset for post", "slug", slug, "asset", latest.Name)
	h.serveAsset(w, r, latest.Name)
}

func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request, name string) {
	rc, asset, err := h.assets.Open(r.Context(), name)
	if err != nil {
		if errors.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.log.LogError(r.Context(), "open asset failed", err, "asset", name)
		http.Error(w, "Erro ao carregar imagem", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	serveContent(w, r, rc, asset)
}

func serveContent(w http.ResponseWriter, r *http.Request, rc io.Reader, asset ports.Asset) {
	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, asset.Name, asset.ModTime, rs)
		return
	}

	if asset.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, rc)
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"poststudio/internal/httpkit"
	"poststudio/internal/titles"
)

// ListTemplates returns the catalog for the editor's template picker.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	httpkit.WriteJSON(w, http.StatusOK, httpkit.OK("").
		With("templates", h.catalog.List()).
		With("default", h.catalog.Default().Key))
}

// ListTitles returns recently saved manual titles, newest first.
func (h *Handler) ListTitles(w http.ResponseWriter, r *http.Request) error {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = titles.DefaultRecentLimit
	}

	list, err := h.titles.Recent(r.Context(), limit)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, httpkit.OK("").With("titles", list))
	return nil
}

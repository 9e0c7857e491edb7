package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"poststudio/internal/httpkit"
	"poststudio/internal/jobs"
	"poststudio/internal/pkg/errors"
	"poststudio/internal/pkg/logger"
)

// Public job states reported to clients.
const (
	statusFinished   = "finished"
	statusProcessing = "processing"
	statusError      = "error"
)

const msgJobFailed = "Erro ao processar imagem"

// CheckImage reports a job as finished, processing or error. Jobs whose
// background poll timed out read as processing, so clients keep asking.
func (h *Handler) CheckImage(w http.ResponseWriter, r *http.Request) error {
	id := strings.TrimSpace(chi.URLParam(r, "jobId"))
	if id == "" {
		return errors.ValidationField("jobId", "id da imagem é obrigatório")
	}
	ctx := logger.ContextWithJobID(r.Context(), id)

	job, err := h.tracker.Status(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			writeFail(w, http.StatusNotFound, "Imagem não encontrada")
			return nil
		}
		h.log.LogError(ctx, "status check failed", err)
		writeFail(w, http.StatusInternalServerError, "Erro ao verificar status da imagem")
		return nil
	}

	switch job.Status {
	case jobs.StatusFinished:
		httpkit.WriteJSON(w, http.StatusOK, httpkit.OK("Imagem pronta").
			With("status", statusFinished).
			With("imageUrl", job.ResultURL))
	case jobs.StatusError:
		httpkit.WriteJSON(w, http.StatusOK, httpkit.Fail(msgJobFailed).With("status", statusError))
	default:
		httpkit.WriteJSON(w, http.StatusOK, httpkit.OK("Imagem ainda em processamento").With("status", statusProcessing))
	}
	return nil
}

// DeleteImage stops tracking a job and asks the renderer to drop it. This is
// cleanup only; a render already in progress is not aborted.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) error {
	id := strings.TrimSpace(chi.URLParam(r, "jobId"))
	if id == "" {
		return errors.ValidationField("jobId", "id da imagem é obrigatório")
	}

	if !h.tracker.Discard(logger.ContextWithJobID(r.Context(), id), id) {
		httpkit.WriteJSON(w, http.StatusOK, httpkit.Fail("Não foi possível remover a imagem no renderizador"))
		return nil
	}
	httpkit.WriteJSON(w, http.StatusOK, httpkit.OK("Imagem removida"))
	return nil
}

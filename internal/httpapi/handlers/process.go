package handlers

import (
	"bytes"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"poststudio/internal/compose"
	"poststudio/internal/httpkit"
	"poststudio/internal/jobs"
	"poststudio/internal/models"
	"poststudio/internal/pkg/errors"
	"poststudio/internal/pkg/logger"
)

// Actions accepted by POST /api/process.
const (
	ActionApplyWatermark  = "apply_watermark"
	ActionGeneratePost    = "generate_post"
	ActionGenerateTitle   = "generate_title_ai"
	ActionGenerateCaption = "generate_captions_ai"
	ActionSaveManualTitle = "save_manual_title"
)

// processData is the union of every action's "data" payload.
type processData struct {
	Format   string `json:"format"`
	Template string `json:"template"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Subject  string `json:"subject"`
	Credits  string `json:"credits"`

	NewsContent string `json:"newsContent"`
	Content     string `json:"content"`
	Prompt      string `json:"prompt"`
	ManualTitle string `json:"manualTitle"`
}

type upload struct {
	file   multipart.File
	header *multipart.FileHeader
}

type processRequest struct {
	Action string
	Data   processData
	Upload *upload
}

type actionFunc func(w http.ResponseWriter, r *http.Request, req *processRequest) error

// Process dispatches /api/process to the handler of the named action.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) error {
	req, err := h.parseProcess(w, r)
	if err != nil {
		return err
	}
	if req.Upload != nil {
		defer req.Upload.file.Close()
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	action, ok := h.actions[req.Action]
	if !ok {
		return errors.ValidationField("action", "ação inválida").WithField("action", req.Action)
	}

	ctx := logger.ContextWithAction(r.Context(), req.Action)
	h.log.FromContext(ctx).Debug("processing action", "has_file", req.Upload != nil)
	return action(w, r.WithContext(ctx), req)
}

func (h *Handler) parseProcess(w http.ResponseWriter, r *http.Request) (*processRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	req := &processRequest{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body struct {
			Action string          `json:"action"`
			Data   json.RawMessage `json:"data"`
		}
		if err := httpkit.DecodeJSON(r.Body, h.maxUpload, &body); err != nil {
			return nil, err
		}
		req.Action = strings.TrimSpace(body.Action)
		data, err := decodeData(body.Data)
		if err != nil {
			return nil, err
		}
		req.Data = data
		return req, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, formError(err)
		}
		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			req.Upload = &upload{file: file, header: header}
		case err != http.ErrMissingFile:
			return nil, errors.WrapWithCode(err, errors.CodeBadRequest, "process.file", "arquivo inválido")
		}

	default:
		if err := r.ParseForm(); err != nil {
			return nil, formError(err)
		}
	}

	req.Action = strings.TrimSpace(r.FormValue("action"))
	data, err := decodeData([]byte(r.FormValue("data")))
	if err != nil {
		if req.Upload != nil {
			req.Upload.file.Close()
		}
		return nil, err
	}
	req.Data = data
	return req, nil
}

// decodeData accepts an object or a JSON string holding an object, which is
// what browser clients send after JSON.stringify.
func decodeData(raw []byte) (processData, error) {
	var data processData
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return data, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return data, errors.ValidationField("data", "dados inválidos")
		}
		return decodeData([]byte(inner))
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, errors.ValidationField("data", "dados inválidos")
	}
	return data, nil
}

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errors.New(errors.CodeBadRequest, "arquivo muito grande").WithField("limit_bytes", maxErr.Limit)
	}
	return errors.WrapWithCode(err, errors.CodeBadRequest, "process.form", "formulário inválido")
}

func (h *Handler) applyWatermark(w http.ResponseWriter, r *http.Request, req *processRequest) error {
	if req.Upload == nil {
		return errors.ValidationField("file", "nenhum arquivo enviado")
	}

	asset, err := h.assets.Save(r.Context(), req.Upload.file, req.Upload.header.Filename, "watermark")
	if err != nil {
		h.log.LogError(r.Context(), "save upload failed", err)
		writeFail(w, http.StatusInternalServerError, "Erro ao processar arquivo")
		return nil
	}

	res := h.builder.BuildWatermark(h.assets.URL(asset.Name))
	return h.submit(w, r, res, submitMessages{
		done:    "Marca d'água aplicada com sucesso!",
		pending: "Watermark em processamento. Use o ID para verificar status.",
		failed:  "Erro ao criar watermark no renderizador",
	})
}

func (h *Handler) generatePost(w http.ResponseWriter, r *http.Request, req *processRequest) error {
	if req.Upload == nil {
		return errors.ValidationField("file", "nenhum arquivo enviado")
	}

	asset, err := h.assets.Save(r.Context(), req.Upload.file, req.Upload.header.Filename, "post")
	if err != nil {
		h.log.LogError(r.Context(), "save upload failed", err)
		writeFail(w, http.StatusInternalServerError, "Erro ao processar arquivo")
		return nil
	}

	d := req.Data
	res := h.builder.Build(compose.Request{
		TemplateKey: d.Template,
		Category:    models.Category(strings.ToLower(strings.TrimSpace(d.Category))),
		AssetURL:    h.assets.URL(asset.Name),
		Fields: compose.Fields{
			Title:   strings.TrimSpace(d.Title),
			Subject: strings.TrimSpace(d.Subject),
			Credits: strings.TrimSpace(d.Credits),
		},
	})
	if res.Fallback {
		h.log.FromContext(r.Context()).Warn("unknown template, using default",
			"requested", d.Template, "template", res.Template.Key)
	}
	h.log.FromContext(r.Context()).Info("post composed",
		"template", res.Template.Key,
		"category", string(res.Category),
		"format", d.Format,
		"asset", asset.Name,
	)

	return h.submit(w, r, res, submitMessages{
		done:    "Post gerado com sucesso!",
		pending: "Post em processamento. Use o ID para verificar status.",
		failed:  "Erro ao criar post no renderizador",
	})
}

type submitMessages struct {
	done, pending, failed string
}

// submit sends the composed request once and hands the job to the tracker.
// It never waits for the render to finish.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, res compose.Result, msgs submitMessages) error {
	ctx := r.Context()
	img, err := h.renderer.Submit(ctx, res.Template.ExternalID, res.Layers, res.Modifications)
	if err != nil {
		h.log.FromContext(ctx).WithTemplate(res.Template.Key).Error("render submit failed", "error", err.Error())
		httpkit.WriteJSON(w, http.StatusInternalServerError, httpkit.Fail(msgs.failed).With("code", errors.GetCode(err)))
		return nil
	}

	job := h.tracker.Track(ctx, img)
	switch job.Status {
	case jobs.StatusFinished:
		httpkit.WriteJSON(w, http.StatusOK, httpkit.OK(msgs.done).
			With("status", statusFinished).
			With("imageId", job.ID).
			With("imageUrl", job.ResultURL))
	case jobs.StatusError:
		httpkit.WriteJSON(w, http.StatusOK, httpkit.Fail(msgJobFailed).
			With("status", statusError).
			With("imageId", job.ID))
	default:
		httpkit.WriteJSON(w, http.StatusOK, httpkit.OK(msgs.pending).
			With("status", statusProcessing).
			With("imageId", job.ID))
	}
	return nil
}

func (h *Handler) generateTitle(w http.ResponseWriter, r *http.Request, req *processRequest) error {
	text := strings.TrimSpace(req.Data.NewsContent)
	if text == "" {
		return errors.ValidationField("newsContent", "conteúdo da notícia é obrigatório")
	}

	title, err := h.suggester.SuggestTitle(r.Context(), text)
	if err != nil {
		h.log.LogError(r.Context(), "title suggestion failed", err)
		writeFail(w, http.StatusInternalServerError, "Erro ao gerar título")
		return nil
	}

	httpkit.WriteJSON(w, http.StatusOK, httpkit.OK("Título gerado com sucesso!").With("suggestedTitle", title))
	return nil
}

func (h *Handler) generateCaptions(w http.ResponseWriter, r *http.Request, req *processRequest) error {
	text := strings.TrimSpace(req.Data.Content)
	if text == "" {
		return errors.ValidationField("content", "conteúdo é obrigatório")
	}

	captions, err := h.suggester.SuggestCaptions(r.Context(), text, req.Data.Prompt)
	if err != nil {
		h.log.LogError(r.Context(), "caption suggestion failed", err)
		writeFail(w, http.StatusInternalServerError, "Erro ao gerar legendas")
		return nil
	}

	httpkit.WriteJSON(w, http.StatusOK, httpkit.OK("Legendas geradas com sucesso!").With("captions", captions))
	return nil
}

func (h *Handler) saveManualTitle(w http.ResponseWriter, r *http.Request, req *processRequest) error {
	if strings.TrimSpace(req.Data.ManualTitle) == "" {
		return errors.ValidationField("manualTitle", "título é obrigatório")
	}

	t, err := h.titles.Save(r.Context(), req.Data.ManualTitle)
	if err != nil {
		if errors.IsValidation(err) {
			return err
		}
		h.log.LogError(r.Context(), "save title failed", err)
		writeFail(w, http.StatusInternalServerError, "Erro ao salvar título")
		return nil
	}

	h.log.FromContext(r.Context()).Info("manual title saved", "title_id", t.ID)
	httpkit.WriteJSON(w, http.StatusOK, httpkit.OK("Título salvo com sucesso!").With("titleId", t.ID))
	return nil
}

func writeFail(w http.ResponseWriter, status int, message string) {
	httpkit.WriteJSON(w, status, httpkit.Fail(message))
}

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poststudio/internal/adapters/storage/localfs"
	"poststudio/internal/catalog"
	"poststudio/internal/compose"
	contracts "poststudio/internal/contracts/renderer/v1"
	"poststudio/internal/httpapi/handlers"
	"poststudio/internal/jobs"
	"poststudio/internal/pkg/errors"
	"poststudio/internal/pkg/logger"
	"poststudio/internal/suggest"
	"poststudio/internal/titles"
)

// fakeRenderer answers Submit with a canned image and Fetch from a per-id
// table that tests can change while a job is being polled.
type fakeRenderer struct {
	mu        sync.Mutex
	submitted []submitCall
	submitErr error
	next      contracts.Image
	images    map[string]contracts.Image
	deleted   []string
}

type submitCall struct {
	templateID string
	layers     contracts.Layers
	mods       *contracts.Modifications
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{images: make(map[string]contracts.Image)}
}

func (f *fakeRenderer) Submit(_ context.Context, templateID string, layers contracts.Layers, mods *contracts.Modifications) (contracts.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, submitCall{templateID, layers, mods})
	if f.submitErr != nil {
		return contracts.Image{}, f.submitErr
	}
	f.images[f.next.ID.String()] = f.next
	return f.next, nil
}

func (f *fakeRenderer) Fetch(_ context.Context, id string) (contracts.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return contracts.Image{}, errors.NotFound("image", id)
	}
	return img, nil
}

func (f *fakeRenderer) Delete(_ context.Context, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return true
}

func (f *fakeRenderer) set(img contracts.Image) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[img.ID.String()] = img
}

func (f *fakeRenderer) lastSubmit() submitCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted[len(f.submitted)-1]
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	renderer *fakeRenderer
	tracker  *jobs.Tracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := logger.NewNop()
	cat, err := catalog.New(catalog.Builtin(), "feed_1_red")
	require.NoError(t, err)

	assets, err := localfs.New(t.TempDir(), "http://poststudio.test")
	require.NoError(t, err)

	rend := newFakeRenderer()
	tracker := jobs.NewTracker(rend, jobs.NewMemoryStore(time.Hour), jobs.TrackerOptions{
		Interval:    5 * time.Millisecond,
		MaxAttempts: 50,
		Log:         log,
	})
	t.Cleanup(func() { _ = tracker.Close(context.Background()) })

	h := NewRouter(Deps{
		Deps: handlers.Deps{
			Log:       log,
			Catalog:   cat,
			Builder:   compose.NewBuilder(cat),
			Renderer:  rend,
			Tracker:   tracker,
			Assets:    assets,
			Suggester: suggest.NewStatic(),
			Titles:    titles.NewMemoryStore(),
		},
		CORSAllowedOrigins: []string{"*"},
		RequestTimeout:     5 * time.Second,
	})
	return &testServer{t: t, handler: h, renderer: rend, tracker: tracker}
}

func (s *testServer) do(req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func (s *testServer) get(path string) (*httptest.ResponseRecorder, map[string]any) {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) process(action string, data any, file []byte, filename string) (*httptest.ResponseRecorder, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(s.t, mw.WriteField("action", action))
	raw, err := json.Marshal(data)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.WriteField("data", string(raw)))
	if file != nil {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(s.t, err)
		_, _ = fw.Write(file)
	}
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nnot-really-a-png")

func TestListTemplates(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.get("/api/templates")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "feed_1_red", body["default"])
	assert.Len(t, body["templates"], len(catalog.Builtin()))
}

func TestUnknownActionIsRejected(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(`{"action":"print_money","data":{}}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := s.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, string(errors.CodeValidation), body["code"])
}

func TestGeneratePostFinishedImmediately(t *testing.T) {
	s := newTestServer(t)
	s.renderer.next = contracts.Image{ID: "101", Status: contracts.StatusFinished, ImageURL: "https://cdn.example/101.png"}

	rec, body := s.process("generate_post", map[string]string{
		"template": "feed_2_white",
		"title":    "Manchete",
		"subject":  "Política",
		"credits":  "Ana Souza",
	}, pngBytes, "foto.png")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "finished", body["status"])
	assert.Equal(t, "101", body["imageId"])
	assert.Equal(t, "https://cdn.example/101.png", body["imageUrl"])

	call := s.renderer.lastSubmit()
	assert.Equal(t, "ye0bmj6dgoneq", call.templateID)
	assert.Equal(t, "Manchete", call.layers[compose.LayerTitle].Text)
	assert.Equal(t, "FOTO: Ana Souza", call.layers[compose.LayerPhotoCred].Text)

	// the renderer fetches the uploaded asset back from /uploads
	assetURL := call.layers[compose.LayerImage].Image
	require.True(t, strings.HasPrefix(assetURL, "http://poststudio.test/uploads/post_"), assetURL)
	u, err := url.Parse(assetURL)
	require.NoError(t, err)

	asset, _ := s.get(u.Path)
	assert.Equal(t, http.StatusOK, asset.Code)
	assert.Equal(t, pngBytes, asset.Body.Bytes())
	assert.Equal(t, "image/png", asset.Header().Get("Content-Type"))
}

func TestGeneratePostPollsUntilFinished(t *testing.T) {
	s := newTestServer(t)
	s.renderer.next = contracts.Image{ID: "202", Status: contracts.StatusQueued}

	rec, body := s.process("generate_post", map[string]string{"template": "stories_1", "title": "Oi"}, pngBytes, "a.jpg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, "202", body["imageId"])

	_, status := s.get("/api/check-image/202")
	assert.Equal(t, "processing", status["status"])

	s.renderer.set(contracts.Image{ID: "202", Status: contracts.StatusFinished, ImageURL: "https://cdn.example/202.png"})
	require.Eventually(t, func() bool {
		_, status := s.get("/api/check-image/202")
		return status["status"] == "finished" && status["imageUrl"] == "https://cdn.example/202.png"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCheckImageReportsRenderFailure(t *testing.T) {
	s := newTestServer(t)
	s.renderer.next = contracts.Image{ID: "303", Status: contracts.StatusPending}

	_, body := s.process("apply_watermark", map[string]string{}, pngBytes, "w.gif")
	require.Equal(t, "processing", body["status"])
	assert.Equal(t, "x9jxylt4vx2x0", s.renderer.lastSubmit().templateID)

	s.renderer.set(contracts.Image{ID: "303", Status: contracts.StatusError})
	require.Eventually(t, func() bool {
		rec, status := s.get("/api/check-image/303")
		return rec.Code == http.StatusOK && status["success"] == false && status["status"] == "error"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCheckImageUnknownJob(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.get("/api/check-image/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestProcessWithoutFile(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.process("generate_post", map[string]string{"title": "x"}, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestSubmitFailureIsServerError(t *testing.T) {
	s := newTestServer(t)
	s.renderer.submitErr = errors.Unavailable("renderer")

	rec, body := s.process("apply_watermark", map[string]string{}, pngBytes, "w.png")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Erro ao criar watermark no renderizador", body["message"])
}

func TestManualTitles(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.process("save_manual_title", map[string]string{"manualTitle": "   "}, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := s.process("save_manual_title", map[string]string{"manualTitle": "Chuva em SP"}, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["titleId"])

	_, list := s.get("/api/titles?limit=5")
	items, ok := list["titles"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "Chuva em SP", items[0].(map[string]any)["text"])
}

func TestSuggestionsFromURLEncodedForm(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{
		"action": {"generate_title_ai"},
		"data":   {`{"newsContent":"Prefeitura anuncia obras"}`},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/process", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, body := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["suggestedTitle"])

	rec, body = s.process("generate_captions_ai", map[string]string{"content": "texto"}, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["captions"], suggest.CaptionCount)

	rec, _ = s.process("generate_captions_ai", map[string]string{"content": ""}, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteImage(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(httptest.NewRequest(http.MethodDelete, "/api/images/55", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []string{"55"}, s.renderer.deleted)
}

func TestPostImageServesLatestUpload(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.get("/post/qualquer-coisa")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.renderer.next = contracts.Image{ID: "1", Status: contracts.StatusPending}
	s.process("apply_watermark", map[string]string{}, pngBytes, "w.png")

	rec, _ = s.get("/post/qualquer-coisa")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestHealthAndFallbacks(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.get("/health?deep=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(len(catalog.Builtin())), body["templates"])

	rec, body = s.get("/api/does-not-exist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "rota não encontrada", body["message"])

	rec, _ = s.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

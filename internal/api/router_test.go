package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hualin/rednote-studio/internal/acquire"
	"github.com/hualin/rednote-studio/internal/api/middleware"
	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/logger"
	"github.com/hualin/rednote-studio/internal/logstore"
	"github.com/hualin/rednote-studio/internal/render"
	"github.com/hualin/rednote-studio/internal/service"
	"github.com/hualin/rednote-studio/internal/store"
)

func testRouter(t *testing.T) (*store.Results, http.Handler) {
	t.Helper()

	results := store.NewResults()
	images := store.NewImages()
	logBuf := logstore.NewBuffer(50)

	captions, err := service.NewCaptionClient(&service.CaptionConfig{
		APIKey:  "test-key",
		BaseURL: "http://llm.invalid",
	})
	if err != nil {
		t.Fatalf("NewCaptionClient: %v", err)
	}
	generateService := service.NewGenerateService(captions, results, images)
	generateService.UseCoordinator(acquire.NewCoordinator(nil, acquire.NewStock(""), generateService))

	rasterizer, err := render.New(render.Options{BaseWidth: 300, Scale: 1}, images)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	exportService := service.NewExportService(results, images, rasterizer, nil, 2)

	router := SetupRouter(Deps{
		Generate: generateService,
		Export:   exportService,
		Raster:   rasterizer,
		Results:  results,
		Images:   images,
		LogBuf:   logBuf,
		CORS:     middleware.CORSConfig{AllowAllOrigins: true},
		Log:      logger.GetDefault(),
	}, "test")
	return results, router
}

func TestHealthEndpoint(t *testing.T) {
	_, router := testRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGenerateCardReturnsPNGAttachment(t *testing.T) {
	_, router := testRouter(t)

	body, _ := json.Marshal(map[string]any{
		"id":         "abc123",
		"content":    "秋日穿搭\n厚外套配围巾\n#穿搭 #秋天 #OOTD",
		"cardStyle":  "left-image",
		"colorTheme": "ocean",
		"cardRatio":  "1:1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/generate-card", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="rednote-card-abc123.png"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("response body is not a PNG")
	}
	// The capture payload's cardRatio must shape the frame: 1:1 at base
	// width 300, scale 1 is a 300x300 PNG.
	cfg, err := png.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode PNG header: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 300 {
		t.Errorf("frame = %dx%d, want 300x300 for cardRatio 1:1", cfg.Width, cfg.Height)
	}
}

func TestGenerateCardRejectsEmptyContent(t *testing.T) {
	_, router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-card", strings.NewReader(`{"content":""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	// Errors must still carry CORS headers so browsers can read them.
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("error response is missing CORS headers")
	}
}

func TestGenerateCardPreflight(t *testing.T) {
	_, router := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/generate-card", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("preflight is missing Access-Control-Allow-Origin")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "POST") {
		t.Error("preflight must allow POST")
	}
}

func TestRenderResultAndImageRoutes(t *testing.T) {
	results, router := testRouter(t)
	results.ReplaceBatch([]domain.GenerationResult{
		{ID: "c1", Content: "标题\n正文\n#a #b #c"},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/results/c1/card?theme=dark&ratio=16:9", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("render status = %d, body = %s", w.Code, w.Body.String())
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("render response is not a PNG")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/results/missing/card", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown card render status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/images/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown image status = %d", w.Code)
	}
}

func TestExportEndpointEmptySetFails(t *testing.T) {
	_, router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/export", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestExportEndpointServesArchive(t *testing.T) {
	results, router := testRouter(t)
	results.ReplaceBatch([]domain.GenerationResult{
		{ID: "c1", Content: "标题\n正文"},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/export", strings.NewReader(`{"theme":"nature"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="rednote-export.zip"` {
		t.Errorf("Content-Disposition = %q, want the fixed archive name", cd)
	}
	if w.Header().Get("X-Export-Report") == "" {
		t.Error("missing X-Export-Report header")
	}
}

func TestLogsEndpoint(t *testing.T) {
	_, router := testRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs?after=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad after param status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("logs status = %d", w.Code)
	}
	var resp struct {
		Entries []logstore.Entry `json:"entries"`
		LastID  int64            `json:"lastId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode logs response: %v", err)
	}
}

package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/hualin/rednote-studio/internal/render"
	"github.com/hualin/rednote-studio/internal/store"
)

func testCardHandler(t *testing.T, images *store.Images) *CardHandler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ras, err := render.New(render.Options{BaseWidth: 100, Scale: 1}, images)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return NewCardHandler(ras, store.NewResults(), images)
}

func TestServeImageFallbackDeliversRawImage(t *testing.T) {
	images := store.NewImages()
	blob := []byte("\x89PNG\r\n\x1a\nraw-bytes")
	handle := images.Put(blob)
	h := testCardHandler(t, images)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/generate-card", nil)

	h.serveImageFallback(c, "c9", store.HandleURL(handle), errors.New("encode failed"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="rednote-card-c9.png"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if w.Body.String() != string(blob) {
		t.Error("fallback response must hold the card's raw image bytes")
	}
}

func TestServeImageFallbackWithoutImageSurfacesRenderError(t *testing.T) {
	h := testCardHandler(t, store.NewImages())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/generate-card", nil)

	h.serveImageFallback(c, "c9", "", errors.New("encode failed"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "encode failed") {
		t.Errorf("body = %s, want the render error surfaced", w.Body.String())
	}
}

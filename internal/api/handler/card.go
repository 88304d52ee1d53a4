package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/hualin/rednote-studio/internal/content"
	"github.com/hualin/rednote-studio/internal/layout"
	"github.com/hualin/rednote-studio/internal/render"
	"github.com/hualin/rednote-studio/internal/store"
	"github.com/hualin/rednote-studio/internal/theme"
)

// CardHandler rasterizes cards server-side and serves memory-backed images.
type CardHandler struct {
	ras     *render.Rasterizer
	results *store.Results
	images  *store.Images
	client  *resty.Client
}

// NewCardHandler creates a new card handler.
func NewCardHandler(ras *render.Rasterizer, results *store.Results, images *store.Images) *CardHandler {
	client := resty.New()
	client.SetTimeout(10 * time.Second)
	return &CardHandler{
		ras:     ras,
		results: results,
		images:  images,
		client:  client,
	}
}

// generateCardRequest renders arbitrary content, without requiring the card
// to be in the working set. The style fields carry the frontend's capture
// payload names.
type generateCardRequest struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	ImageURL   string `json:"imageUrl"`
	CardStyle  string `json:"cardStyle"`
	ColorTheme string `json:"colorTheme"`
	CardRatio  string `json:"cardRatio"`
}

// GenerateCard handles POST /api/generate-card: the server-side capture
// path. The response is the finished PNG as a download attachment.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes PNG attachment or JSON error).
func (h *CardHandler) GenerateCard(c *gin.Context) {
	var req generateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "content must not be empty",
		})
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	style := StyleRequest{
		Layout: req.CardStyle,
		Theme:  req.ColorTheme,
		Ratio:  req.CardRatio,
	}.ToStyle()
	tree := layout.Render(style, layout.Input{
		Content:  content.Parse(req.Content),
		Palette:  theme.ResolveColors(style.Theme),
		Font:     theme.ResolveFont(style.FontFamily, style.FontSize),
		ImageURL: req.ImageURL,
	})

	png, err := h.ras.Rasterize(c.Request.Context(), tree)
	if err != nil {
		h.serveImageFallback(c, id, req.ImageURL, err)
		return
	}

	filename := fmt.Sprintf("rednote-card-%s.png", id)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "image/png", png)
}

// serveImageFallback is the middle step of the capture fallback chain: when
// the full-card raster fails but the card has an image, the raw image bytes
// are served as the download instead. Only when that also fails does the
// client see an error.
func (h *CardHandler) serveImageFallback(c *gin.Context, id, imageURL string, renderErr error) {
	data, err := h.fetchImage(c, imageURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Render failed: " + renderErr.Error(),
		})
		return
	}
	ext := extForContentType(http.DetectContentType(data))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="rednote-card-%s.%s"`, id, ext))
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// fetchImage loads the raw bytes behind a card's image source.
func (h *CardHandler) fetchImage(c *gin.Context, imageURL string) ([]byte, error) {
	switch {
	case imageURL == "":
		return nil, fmt.Errorf("card has no image")
	case strings.HasPrefix(imageURL, "memory://"):
		data, ok := h.images.ResolveHandle(strings.TrimPrefix(imageURL, "memory://"))
		if !ok {
			return nil, fmt.Errorf("image handle no longer exists")
		}
		return data, nil
	case strings.HasPrefix(imageURL, "http://"), strings.HasPrefix(imageURL, "https://"):
		resp, err := h.client.R().SetContext(c.Request.Context()).Get(imageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image: %w", err)
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return nil, fmt.Errorf("image fetch returned HTTP %d", resp.StatusCode())
		}
		return resp.Body(), nil
	default:
		return nil, fmt.Errorf("unsupported image source scheme")
	}
}

func extForContentType(ct string) string {
	switch ct {
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// RenderResult handles GET /api/v1/results/:id/card: renders one working-set
// card with the style passed as query parameters.
func (h *CardHandler) RenderResult(c *gin.Context) {
	id := c.Param("id")
	result, ok := h.results.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown result: " + id})
		return
	}

	style := StyleRequest{
		Layout:     c.Query("layout"),
		Theme:      c.Query("theme"),
		Ratio:      c.Query("ratio"),
		FontFamily: c.Query("fontFamily"),
		FontSize:   c.Query("fontSize"),
	}.ToStyle()

	tree := layout.Render(style, layout.Input{
		Content:  content.Parse(result.Content),
		Palette:  theme.ResolveColors(style.Theme),
		Font:     theme.ResolveFont(style.FontFamily, style.FontSize),
		ImageURL: result.ImageURL,
	})

	png, err := h.ras.Rasterize(c.Request.Context(), tree)
	if err != nil {
		h.serveImageFallback(c, id, result.ImageURL, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="rednote-card-%s.png"`, id))
	c.Data(http.StatusOK, "image/png", png)
}

// ServeImage handles GET /api/v1/images/:id: serves a memory-backed image
// payload so the frontend can preview generated images by handle.
func (h *CardHandler) ServeImage(c *gin.Context) {
	id := c.Param("id")
	data, ok := h.images.ResolveHandle(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown image: " + id})
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

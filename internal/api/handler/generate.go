package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hualin/rednote-studio/internal/service"
	"github.com/hualin/rednote-studio/internal/store"
)

// GenerateHandler handles caption generation and per-card edits.
type GenerateHandler struct {
	generate *service.GenerateService
	results  *store.Results
}

// NewGenerateHandler creates a new generate handler.
// Parameters:
//   - generate: generation service instance.
//   - results: working set store.
//
// Returns:
//   - *GenerateHandler: initialized handler.
func NewGenerateHandler(generate *service.GenerateService, results *store.Results) *GenerateHandler {
	return &GenerateHandler{
		generate: generate,
		results:  results,
	}
}

// Generate handles POST /api/v1/generate.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes JSON response).
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	results, err := h.generate.Generate(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Generation failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// ListResults handles GET /api/v1/results.
func (h *GenerateHandler) ListResults(c *gin.Context) {
	results := h.results.List()
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// UpdateContent handles PUT /api/v1/results/:id.
func (h *GenerateHandler) UpdateContent(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	result, err := h.generate.UpdateContent(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Update failed: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SwapImage handles POST /api/v1/results/:id/image.
// Stock modes respond with the updated card; ai-generate responds with the
// task to poll.
func (h *GenerateHandler) SwapImage(c *gin.Context) {
	var req service.SwapImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	resp, err := h.generate.SwapImage(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Image swap failed: " + err.Error(),
		})
		return
	}
	if resp.Task != nil {
		c.JSON(http.StatusAccepted, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ImageTask handles GET /api/v1/results/:id/image/task.
func (h *GenerateHandler) ImageTask(c *gin.Context) {
	id := c.Param("id")
	if state, ok := h.generate.TaskState(id); ok {
		c.JSON(http.StatusOK, state)
		return
	}

	// No in-flight task: report the card's settled state so pollers can stop.
	result, ok := h.results.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown result: " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "idle",
		"imageUrl": result.ImageURL,
	})
}

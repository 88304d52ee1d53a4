package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hualin/rednote-studio/internal/service"
)

// ExportHandler handles the batch export endpoint.
type ExportHandler struct {
	export *service.ExportService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(export *service.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

type exportRequest struct {
	StyleRequest
	IncludeImages bool `json:"includeImages"`
	Upload        bool `json:"upload"`
}

// Export handles POST /api/v1/export. The default response is the ZIP
// archive as a download, with the run report mirrored into the
// X-Export-Report header; upload requests get the report as JSON instead.
// Parameters:
//   - c: Gin request context.
//
// Returns: none (writes ZIP attachment or JSON report).
func (h *ExportHandler) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	data, report, err := h.export.ExportAll(c.Request.Context(), service.ExportOptions{
		Style:         req.ToStyle(),
		IncludeImages: req.IncludeImages,
		Upload:        req.Upload,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Export failed: " + err.Error(),
			"report": report,
		})
		return
	}

	if req.Upload && report.ArchiveURL != "" {
		c.JSON(http.StatusOK, report)
		return
	}

	if summary, err := json.Marshal(report); err == nil {
		c.Header("X-Export-Report", string(summary))
	}
	// The batch archive always downloads under the same fixed name; only
	// upload keys carry a timestamp.
	c.Header("Content-Disposition", `attachment; filename="rednote-export.zip"`)
	c.Data(http.StatusOK, "application/zip", data)
}

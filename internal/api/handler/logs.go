package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hualin/rednote-studio/internal/logstore"
)

// LogsHandler serves the buffered activity log for the frontend panel.
type LogsHandler struct {
	buffer *logstore.Buffer
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(buffer *logstore.Buffer) *LogsHandler {
	return &LogsHandler{buffer: buffer}
}

// Logs handles GET /api/v1/logs?after=<id>: returns buffered entries newer
// than the given id so pollers only receive what they have not seen.
func (h *LogsHandler) Logs(c *gin.Context) {
	var after int64
	if raw := c.Query("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid after parameter: " + raw,
			})
			return
		}
		after = parsed
	}

	entries := h.buffer.Since(after)
	lastID := after
	if len(entries) > 0 {
		lastID = entries[len(entries)-1].ID
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"lastId":  lastID,
	})
}

package handle

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medinsight/api/internal/analysis"
)

// Analyze runs POST /analyze. Parse failures of the model output never
// surface here; they come back as a fallback report with 200.
func (h *Handle) Analyze(c *gin.Context) {
	var req analysis.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.analyzeTimeout)
	defer cancel()

	rep, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		var inErr *analysis.InputError
		var upErr *analysis.UpstreamError
		switch {
		case errors.As(err, &inErr):
			writeError(c, http.StatusBadRequest, inErr.Title, inErr.Detail)
		case errors.As(err, &upErr):
			writeError(c, http.StatusBadGateway, upErr.Title, upErr.Err.Error())
		default:
			h.log.Error("analyze failed", "error", err)
			writeError(c, http.StatusInternalServerError, "Internal server error", "")
		}
		return
	}
	writeJSON(c, http.StatusOK, rep)
}

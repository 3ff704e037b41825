package handle

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxHistoryLimit = 100

func (h *Handle) History(c *gin.Context) {
	if h.history == nil {
		writeError(c, http.StatusServiceUnavailable, "Database not configured", "")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.dbTimeout)
	defer cancel()
	recs, err := h.history.Recent(ctx, limit)
	if err != nil {
		h.log.Error("error fetching history", "error", err)
		writeError(c, http.StatusInternalServerError, "Failed to fetch history", "")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"analyses": recs, "count": len(recs)})
}

func (h *Handle) Stats(c *gin.Context) {
	if h.history == nil {
		writeError(c, http.StatusServiceUnavailable, "Database not configured", "")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.dbTimeout)
	defer cancel()
	st, err := h.history.Stats(ctx)
	if err != nil {
		h.log.Error("error fetching stats", "error", err)
		writeError(c, http.StatusInternalServerError, "Failed to fetch stats", "")
		return
	}
	writeJSON(c, http.StatusOK, st)
}

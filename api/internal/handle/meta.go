package handle

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handle) Health(c *gin.Context) {
	c.Header("X-App-Version", h.info.Version)
	writeJSON(c, http.StatusOK, gin.H{
		"status":    "ok",
		"version":   h.info.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handle) Version(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"version":  h.info.Version,
		"provider": h.info.Provider,
		"model":    h.info.Model,
		"port":     h.info.Port,
	})
}

// Reset acknowledges a client reset. The server keeps no session state.
func (h *Handle) Reset(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}

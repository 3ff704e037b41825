package handle

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"medinsight/api/internal/speech"
)

// TextToSpeech runs POST /text-to-speech.
func (h *Handle) TextToSpeech(c *gin.Context) {
	if h.tts == nil {
		writeError(c, http.StatusServiceUnavailable, "Text-to-speech not configured", "")
		return
	}
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "Text is required", "")
		return
	}
	text, ok := body["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		writeError(c, http.StatusBadRequest, "Text is required", "")
		return
	}
	if utf8.RuneCountInString(text) > speech.MaxInputChars {
		writeError(c, http.StatusBadRequest, "Text too long (max 5000 characters)", "")
		return
	}

	spoken := speech.Prepare(text, h.ttsLimit)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.ttsTimeout)
	defer cancel()

	audio, err := h.tts.Synthesize(ctx, spoken)
	if err != nil {
		h.log.Warn("text-to-speech failed", "provider", h.tts.Name(), "chars", utf8.RuneCountInString(spoken), "error", err)
		var quota *speech.QuotaError
		var apiErr *speech.APIError
		switch {
		case errors.As(err, &quota):
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":          "Text-to-speech quota exceeded",
				"detail":         quota.Message,
				"quota_exceeded": true,
			})
		case errors.As(err, &apiErr):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":       "Text-to-speech service unavailable",
				"detail":      apiErr.Message,
				"status_code": apiErr.StatusCode,
			})
		default:
			writeError(c, http.StatusInternalServerError, "Failed to generate speech", err.Error())
		}
		return
	}

	ct := audio.ContentType
	if ct == "" {
		ct = "audio/mpeg"
	}
	c.Writer.Header().Del("Pragma")
	c.Writer.Header().Del("Expires")
	c.Writer.Header().Del("Surrogate-Control")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Accept-Ranges", "bytes")
	c.Data(http.StatusOK, ct, audio.Data)
}

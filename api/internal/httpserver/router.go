package httpserver

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"medinsight/api/internal/handle"
	"medinsight/api/internal/logger"
)

const maxBodyBytes = 25 << 20

type RouterOptions struct {
	Handle         *handle.Handle
	Log            *logger.Logger
	PublicDir      string
	RateEvery      time.Duration
	RateBurst      int
	MaxConcurrent  int
	LimiterCleanup time.Duration
}

// NewRouter builds the gin engine. The returned stop func ends background work.
func NewRouter(o RouterOptions) (*gin.Engine, func()) {
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	if o.RateEvery <= 0 {
		o.RateEvery = 600 * time.Millisecond
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 20
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 8
	}
	if o.LimiterCleanup <= 0 {
		o.LimiterCleanup = 10 * time.Minute
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(o.Log),
		corsAllowAll(),
		noCache(),
		securityHeaders(),
		limitBodySize(maxBodyBytes),
	)

	limiter := newIPLimiter(o.RateEvery, o.RateBurst)
	sem := semaphore.NewWeighted(int64(o.MaxConcurrent))
	h := o.Handle

	r.POST("/analyze", limiter.middleware(), concurrencyLimit(sem), h.Analyze)
	r.POST("/text-to-speech", limiter.middleware(), h.TextToSpeech)
	r.POST("/reset", h.Reset)
	r.GET("/health", h.Health)
	r.GET("/version", h.Version)
	r.GET("/history", h.History)
	r.GET("/stats", h.Stats)

	mountStatic(r, o.PublicDir, o.Log)

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(o.LimiterCleanup)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				limiter.reset()
			case <-done:
				return
			}
		}
	}()
	return r, func() { close(done) }
}

// mountStatic serves dir and falls back to index.html for unknown GET routes.
func mountStatic(r *gin.Engine, dir string, log *logger.Logger) {
	if dir == "" {
		return
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		log.Info("static dir not found, skipping", "dir", dir)
		return
	}
	index := filepath.Join(dir, "index.html")
	fs := http.Dir(dir)

	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		p := filepath.Clean("/" + strings.TrimPrefix(c.Request.URL.Path, "/"))
		if p != "/" {
			if f, err := fs.Open(p); err == nil {
				st, statErr := f.Stat()
				f.Close()
				if statErr == nil && !st.IsDir() {
					c.File(filepath.Join(dir, filepath.FromSlash(p)))
					return
				}
			}
		}
		if _, err := os.Stat(index); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.File(index)
	})
}

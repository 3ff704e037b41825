package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"medinsight/api/internal/handle"
)

func testRouter(t *testing.T, o RouterOptions) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if o.Handle == nil {
		o.Handle = handle.New(handle.Options{})
	}
	r, stop := NewRouter(o)
	t.Cleanup(stop)
	return r
}

func get(r http.Handler, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDefaultHeaders(t *testing.T) {
	r := testRouter(t, RouterOptions{})
	w := get(r, "/health", map[string]string{"Origin": "https://example.org"})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	want := map[string]string{
		"Cache-Control":               "no-store, no-cache, must-revalidate, proxy-revalidate",
		"Pragma":                      "no-cache",
		"Expires":                     "0",
		"Surrogate-Control":           "no-store",
		"X-Content-Type-Options":      "nosniff",
		"Access-Control-Allow-Origin": "https://example.org",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if w.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id")
	}
}

func TestRequestIDPassthrough(t *testing.T) {
	r := testRouter(t, RouterOptions{})
	w := get(r, "/health", map[string]string{requestIDHeader: "abc-123"})
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	r := testRouter(t, RouterOptions{RateEvery: time.Hour, RateBurst: 2})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/text-to-speech", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	// No synthesizer is configured, so admitted requests get 503.
	if codes[0] != http.StatusServiceUnavailable || codes[1] != http.StatusServiceUnavailable || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	req := httptest.NewRequest(http.MethodPost, "/text-to-speech", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("X-Forwarded-For", "10.0.0.9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code == http.StatusTooManyRequests {
		t.Error("other client should have its own bucket")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		hdr  map[string]string
		addr string
		want string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "4.4.4.4"}, "9.9.9.9:1", "4.4.4.4"},
		{"remote", nil, "9.9.9.9:1234", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.addr
			for k, v := range tc.hdr {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tc.want {
				t.Errorf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestConcurrencyLimitCancelled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sem := semaphore.NewWeighted(1)
	if !sem.TryAcquire(1) {
		t.Fatal("acquire")
	}
	r := gin.New()
	r.POST("/x", concurrencyLimit(sem), func(c *gin.Context) { c.Status(http.StatusOK) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/x", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d", w.Code)
	}

	sem.Release(1)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	if w.Code != http.StatusOK {
		t.Errorf("code after release = %d", w.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBodySize(8))
	r.POST("/x", func(c *gin.Context) {
		var v map[string]any
		if err := c.ShouldBindJSON(&v); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"0123456789"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("code = %d", w.Code)
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := testRouter(t, RouterOptions{PublicDir: dir})

	if w := get(r, "/app.js", nil); w.Code != http.StatusOK || w.Body.String() != "console.log(1)" {
		t.Errorf("asset: %d %q", w.Code, w.Body.String())
	}
	if w := get(r, "/some/client/route", nil); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "app") {
		t.Errorf("fallback: %d %q", w.Code, w.Body.String())
	}
	if w := get(r, "/../../etc/passwd", nil); strings.Contains(w.Body.String(), "root:") {
		t.Error("path escaped public dir")
	}

	req := httptest.NewRequest(http.MethodPost, "/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("POST unknown route code = %d", w.Code)
	}
}

func TestServerRunShutdown(t *testing.T) {
	s := New("127.0.0.1:0", http.NotFoundHandler(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Second) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

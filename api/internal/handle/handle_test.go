package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"medinsight/api/internal/analysis"
	"medinsight/api/internal/report"
	"medinsight/api/internal/speech"
	"medinsight/api/internal/store"
)

type fakeAnalyzer struct {
	rep report.ClinicalReport
	err error
	got analysis.Request
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req analysis.Request) (report.ClinicalReport, error) {
	f.got = req
	return f.rep, f.err
}

type fakeTTS struct {
	audio speech.Audio
	err   error
	text  string
}

func (f *fakeTTS) Name() string { return "fake" }

func (f *fakeTTS) Synthesize(_ context.Context, text string) (speech.Audio, error) {
	f.text = text
	return f.audio, f.err
}

type fakeHistory struct {
	recs  []store.Record
	stats store.Stats
	err   error
	limit int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]store.Record, error) {
	f.limit = limit
	return f.recs, f.err
}

func (f *fakeHistory) Stats(context.Context) (store.Stats, error) {
	return f.stats, f.err
}

func newEngine(h *Handle) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/analyze", h.Analyze)
	r.POST("/text-to-speech", h.TextToSpeech)
	r.POST("/reset", h.Reset)
	r.GET("/health", h.Health)
	r.GET("/version", h.Version)
	r.GET("/history", h.History)
	r.GET("/stats", h.Stats)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestAnalyzeStatusMapping(t *testing.T) {
	ok := report.ClinicalReport{Modality: report.Xray, Severity: report.Green, Summary: "fine"}
	tests := []struct {
		name string
		body string
		err  error
		code int
		msg  string
	}{
		{"malformed json", `{`, nil, http.StatusBadRequest, "Invalid request body"},
		{"input error", `{"imageBase64":"x","mimeType":"application/pdf","modality":"xray"}`,
			&analysis.InputError{Title: "Invalid image data", Detail: "Unsupported image format"}, http.StatusBadRequest, "Invalid image data"},
		{"upstream error", `{"imageBase64":"x","mimeType":"image/png","modality":"xray"}`,
			&analysis.UpstreamError{Title: "Analysis failed", Err: errors.New("boom")}, http.StatusBadGateway, "Analysis failed"},
		{"unexpected error", `{"imageBase64":"x","mimeType":"image/png","modality":"xray"}`,
			errors.New("surprise"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := New(Options{Analyzer: &fakeAnalyzer{rep: ok, err: tc.err}})
			w := do(newEngine(h), http.MethodPost, "/analyze", tc.body)
			if w.Code != tc.code {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tc.code, w.Body.String())
			}
			if got := decode(t, w)["error"]; got != tc.msg {
				t.Errorf("error = %v, want %q", got, tc.msg)
			}
		})
	}
}

func TestAnalyzeReturnsReport(t *testing.T) {
	fa := &fakeAnalyzer{rep: report.ClinicalReport{
		Modality: report.BloodTest, Severity: report.Yellow, Summary: "Low iron",
		Details: []string{"Ferritin low"}, RecommendedActions: []string{"See GP"},
		Disclaimer: report.DefaultDisclaimer, OCRHasText: true, OCRExcerpt: "Ferritin 8",
	}}
	h := New(Options{Analyzer: fa})
	w := do(newEngine(h), http.MethodPost, "/analyze", `{"imageBase64":"abc","mimeType":"image/jpeg","modality":"blood_test"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", w.Code, w.Body.String())
	}
	if fa.got.Modality != "blood_test" || fa.got.MIMEType != "image/jpeg" || fa.got.ImageBase64 != "abc" {
		t.Errorf("request = %+v", fa.got)
	}
	m := decode(t, w)
	if m["severity"] != "yellow" || m["ocr_has_text"] != true || m["ocr_excerpt"] != "Ferritin 8" {
		t.Errorf("body = %v", m)
	}
}

func TestTextToSpeech(t *testing.T) {
	long := strings.Repeat("a", speech.MaxInputChars+1)
	tests := []struct {
		name  string
		tts   *fakeTTS
		body  string
		code  int
		check func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{name: "missing text", tts: &fakeTTS{}, body: `{}`, code: http.StatusBadRequest},
		{name: "non-string text", tts: &fakeTTS{}, body: `{"text":42}`, code: http.StatusBadRequest},
		{name: "blank text", tts: &fakeTTS{}, body: `{"text":"   "}`, code: http.StatusBadRequest},
		{name: "too long", tts: &fakeTTS{}, body: `{"text":"` + long + `"}`, code: http.StatusBadRequest,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				if got := decode(t, w)["error"]; got != "Text too long (max 5000 characters)" {
					t.Errorf("error = %v", got)
				}
			}},
		{name: "quota", tts: &fakeTTS{err: &speech.QuotaError{Provider: "elevenlabs", Message: "out of credits"}},
			body: `{"text":"hello"}`, code: http.StatusPaymentRequired,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				m := decode(t, w)
				if m["quota_exceeded"] != true || m["detail"] != "out of credits" {
					t.Errorf("body = %v", m)
				}
			}},
		{name: "upstream", tts: &fakeTTS{err: &speech.APIError{Provider: "elevenlabs", StatusCode: 500, Message: "down"}},
			body: `{"text":"hello"}`, code: http.StatusBadGateway,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				if got := decode(t, w)["status_code"]; got != float64(500) {
					t.Errorf("status_code = %v", got)
				}
			}},
		{name: "other failure", tts: &fakeTTS{err: speech.ErrEmptyAudio}, body: `{"text":"hello"}`, code: http.StatusInternalServerError},
		{name: "ok", tts: &fakeTTS{audio: speech.Audio{Data: []byte("ID3"), ContentType: "audio/mpeg"}},
			body: `{"text":"hello"}`, code: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				if ct := w.Header().Get("Content-Type"); ct != "audio/mpeg" {
					t.Errorf("content-type = %q", ct)
				}
				if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
					t.Errorf("cache-control = %q", cc)
				}
				if w.Body.String() != "ID3" {
					t.Errorf("body = %q", w.Body.String())
				}
			}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := New(Options{Speech: tc.tts})
			w := do(newEngine(h), http.MethodPost, "/text-to-speech", tc.body)
			if w.Code != tc.code {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tc.code, w.Body.String())
			}
			if tc.check != nil {
				tc.check(t, w)
			}
		})
	}
}

func TestTextToSpeechSummarizesLongText(t *testing.T) {
	tts := &fakeTTS{audio: speech.Audio{Data: []byte("x")}}
	h := New(Options{Speech: tts, SpeechMaxChars: 40})
	text := "The image shows a normal chest. Lungs are clear and there is nothing else of note here."
	w := do(newEngine(h), http.MethodPost, "/text-to-speech", `{"text":"`+text+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	if tts.text != speech.Prepare(text, 40) {
		t.Errorf("spoken = %q", tts.text)
	}
	if len([]rune(tts.text)) > 40 {
		t.Errorf("spoken text longer than limit: %q", tts.text)
	}
}

func TestTextToSpeechNotConfigured(t *testing.T) {
	h := New(Options{})
	w := do(newEngine(h), http.MethodPost, "/text-to-speech", `{"text":"hi"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d", w.Code)
	}
}

func TestMetaRoutes(t *testing.T) {
	h := New(Options{Info: Info{Provider: "groq", Model: "m", Port: "3000"}})
	r := newEngine(h)

	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || w.Header().Get("X-App-Version") != AppVersion {
		t.Fatalf("health: %d %v", w.Code, w.Header())
	}
	if m := decode(t, w); m["status"] != "ok" || m["timestamp"] == "" {
		t.Errorf("health body = %v", m)
	}

	w = do(r, http.MethodGet, "/version", "")
	if m := decode(t, w); m["provider"] != "groq" || m["model"] != "m" || m["port"] != "3000" || m["version"] != AppVersion {
		t.Errorf("version body = %v", m)
	}

	w = do(r, http.MethodPost, "/reset", "")
	if m := decode(t, w); m["ok"] != true {
		t.Errorf("reset body = %v", m)
	}
}

func TestHistoryAndStats(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		r := newEngine(New(Options{}))
		for _, p := range []string{"/history", "/stats"} {
			w := do(r, http.MethodGet, p, "")
			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("%s code = %d", p, w.Code)
			}
		}
	})

	t.Run("limit clamping", func(t *testing.T) {
		fh := &fakeHistory{recs: []store.Record{{ID: "a"}, {ID: "b"}}}
		r := newEngine(New(Options{History: fh}))
		cases := map[string]int{"/history": 10, "/history?limit=5": 5, "/history?limit=500": 100, "/history?limit=x": 10}
		for path, want := range cases {
			w := do(r, http.MethodGet, path, "")
			if w.Code != http.StatusOK {
				t.Fatalf("%s code = %d", path, w.Code)
			}
			if fh.limit != want {
				t.Errorf("%s limit = %d, want %d", path, fh.limit, want)
			}
			if m := decode(t, w); m["count"] != float64(2) {
				t.Errorf("%s count = %v", path, m["count"])
			}
		}
	})

	t.Run("stats", func(t *testing.T) {
		fh := &fakeHistory{stats: store.Stats{Total: 3, ByModality: map[string]int{"xray": 3}, BySeverity: map[string]int{"green": 3}}}
		w := do(newEngine(New(Options{History: fh})), http.MethodGet, "/stats", "")
		if m := decode(t, w); m["total_analyses"] != float64(3) {
			t.Errorf("stats body = %v", m)
		}
	})

	t.Run("query failure", func(t *testing.T) {
		fh := &fakeHistory{err: errors.New("db gone")}
		r := newEngine(New(Options{History: fh}))
		if w := do(r, http.MethodGet, "/history", ""); w.Code != http.StatusInternalServerError {
			t.Errorf("history code = %d", w.Code)
		}
		if w := do(r, http.MethodGet, "/stats", ""); w.Code != http.StatusInternalServerError {
			t.Errorf("stats code = %d", w.Code)
		}
	})
}

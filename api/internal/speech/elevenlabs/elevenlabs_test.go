package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"medinsight/api/internal/speech"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "xi-test", BaseURL: srv.URL})
}

func TestSynthesize(t *testing.T) {
	var payload ttsRequest
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/"+DefaultVoice {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "xi-test" {
			t.Errorf("xi-api-key = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	})

	audio, err := c.Synthesize(context.Background(), "Summary: all normal.")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio.Data) != "mp3-bytes" || audio.ContentType != "audio/mpeg" {
		t.Errorf("audio = %q %q", audio.Data, audio.ContentType)
	}
	if payload.ModelID != DefaultModel || payload.VoiceSettings.Stability != 0.5 || payload.VoiceSettings.SimilarityBoost != 0.75 {
		t.Errorf("payload = %+v", payload)
	}
	if !payload.VoiceSettings.UseSpeakerBoost {
		t.Error("use_speaker_boost = false")
	}
}

func TestSynthesizeQuota(t *testing.T) {
	bodies := []string{
		`{"detail":{"status":"quota_exceeded","message":"You have 0 credits left"}}`,
		`quota_exceeded: try later`,
	}
	for _, body := range bodies {
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(body))
		})
		_, err := c.Synthesize(context.Background(), "hi")
		if !speech.IsQuotaExceeded(err) {
			t.Errorf("body %q: error = %v, want quota error", body, err)
		}
	}
}

func TestSynthesizeAPIError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":{"status":"invalid_voice","message":"voice not found"}}`))
	})
	_, err := c.Synthesize(context.Background(), "hi")
	var apiErr *speech.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *speech.APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "voice not found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestSynthesizeEmptyAudio(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if _, err := c.Synthesize(context.Background(), "hi"); !errors.Is(err, speech.ErrEmptyAudio) {
		t.Fatalf("error = %v, want ErrEmptyAudio", err)
	}
}

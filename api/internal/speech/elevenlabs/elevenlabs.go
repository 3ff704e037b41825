// Package elevenlabs synthesizes speech with the ElevenLabs REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medinsight/api/internal/speech"
)

const (
	Name           = "elevenlabs"
	DefaultBaseURL = "https://api.elevenlabs.io/v1"
	DefaultModel   = "eleven_turbo_v2_5"
	DefaultVoice   = "CpLFIATEbkaZdJr01erZ"
)

type Config struct {
	APIKey  string
	Voice   string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	apiKey  string
	voice   string
	model   string
	baseURL string
	client  *http.Client
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		voice:   cfg.Voice,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: c.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return speech.Audio{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, c.voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return speech.Audio{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return speech.Audio{}, classifyError(resp.StatusCode, respBody)
	}
	if len(respBody) == 0 {
		return speech.Audio{}, speech.ErrEmptyAudio
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(ct, "application/json") {
		ct = "audio/mpeg"
	}
	return speech.Audio{Data: respBody, ContentType: ct}, nil
}

func classifyError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Detail.Message != "" {
			msg = errResp.Detail.Message
		}
		if errResp.Detail.Status == "quota_exceeded" {
			return &speech.QuotaError{Provider: Name, Message: msg}
		}
	}
	if strings.Contains(string(body), "quota_exceeded") {
		return &speech.QuotaError{Provider: Name, Message: msg}
	}
	return &speech.APIError{Provider: Name, StatusCode: status, Message: msg}
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type errorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

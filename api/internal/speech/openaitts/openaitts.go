// Package openaitts synthesizes speech with the OpenAI audio API.
package openaitts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"medinsight/api/internal/speech"
)

const (
	Name         = "openai"
	DefaultModel = string(openai.SpeechModelTTS1)
	DefaultVoice = "alloy"
)

type Config struct {
	APIKey     string
	Model      string
	Voice      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	model  string
	voice  string
	client openai.Client
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		model:  cfg.Model,
		voice:  cfg.Voice,
		client: openai.NewClient(opts...),
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.model),
		Voice:          openai.AudioSpeechNewParamsVoice(c.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return speech.Audio{}, mapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return speech.Audio{}, fmt.Errorf("failed reading openai audio response: %w", err)
	}
	if len(data) == 0 {
		return speech.Audio{}, speech.ErrEmptyAudio
	}
	return speech.Audio{Data: data, ContentType: "audio/mpeg"}, nil
}

func mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(apiErr.StatusCode)
	}
	if apiErr.Code == "insufficient_quota" || strings.Contains(msg, "quota") {
		return &speech.QuotaError{Provider: Name, Message: msg}
	}
	return &speech.APIError{Provider: Name, StatusCode: apiErr.StatusCode, Message: msg}
}

// Package openai talks to OpenAI-compatible chat completion endpoints
// (OpenAI, Groq).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medinsight/api/internal/llm"
	"medinsight/api/internal/util"
)

type Engine struct {
	name    string
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(name, baseURL, key, model string, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Engine{
		name:    name,
		APIKey:  key,
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Complete(ctx context.Context, in llm.Request) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("%s: api key not set", e.name)
	}

	messages := make([]any, 0, len(in.Messages))
	for _, m := range in.Messages {
		messages = append(messages, encodeMessage(m))
	}
	body := map[string]any{
		"model":       e.Model,
		"messages":    messages,
		"temperature": in.Temperature,
	}
	if in.MaxTokens > 0 {
		body["max_tokens"] = in.MaxTokens
	}
	if in.JSON {
		body["response_format"] = map[string]any{"type": "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("%s API error: %d - %s", e.name, resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", e.name, err)
	}
	if len(raw.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", e.name)
	}
	return raw.Choices[0].Message.Content, nil
}

func encodeMessage(m llm.Message) map[string]any {
	role := string(m.Role)
	if role == "" {
		role = string(llm.RoleUser)
	}
	if len(m.Images) == 0 {
		return map[string]any{"role": role, "content": m.Text}
	}
	parts := []any{map[string]any{"type": "text", "text": m.Text}}
	for _, img := range m.Images {
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": util.MakeDataURL(img.MIMEType, img.Base64)},
		})
	}
	return map[string]any{"role": role, "content": parts}
}

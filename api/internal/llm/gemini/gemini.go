// Package gemini adapts Google Gemini to llm.Engine.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"medinsight/api/internal/llm"
	"medinsight/api/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Complete(ctx context.Context, in llm.Request) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	system, parts, err := buildParts(in.Messages)
	if err != nil {
		return "", err
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = generationConfig(in)
	if len(system) > 0 {
		m.SystemInstruction = &genai.Content{Parts: system}
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return txt, nil
}

func generationConfig(in llm.Request) genai.GenerationConfig {
	cfg := genai.GenerationConfig{Temperature: ptrFloat32(float32(in.Temperature))}
	if in.MaxTokens > 0 {
		n := int32(in.MaxTokens)
		cfg.MaxOutputTokens = &n
	}
	if in.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// buildParts splits system turns into the system instruction and decodes images into blobs.
func buildParts(msgs []llm.Message) (system, parts []genai.Part, err error) {
	for _, msg := range msgs {
		if msg.Role == llm.RoleSystem {
			system = append(system, genai.Text(msg.Text))
			continue
		}
		if msg.Text != "" {
			parts = append(parts, genai.Text(msg.Text))
		}
		for _, img := range msg.Images {
			data, hint, err := util.DecodeBase64MaybeDataURL(img.Base64)
			if err != nil {
				return nil, nil, fmt.Errorf("gemini: bad base64: %w", err)
			}
			parts = append(parts, &genai.Blob{MIMEType: util.PickMIME(img.MIMEType, hint, data), Data: data})
		}
	}
	if len(parts) == 0 {
		return nil, nil, errors.New("gemini: empty request")
	}
	return system, parts, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				if s := strings.TrimSpace(string(t)); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

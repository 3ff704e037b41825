// Package llm is the narrow gateway to hosted chat-completion models.
package llm

import (
	"context"
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Image is a base64 payload without a data-URL header.
type Image struct {
	MIMEType string
	Base64   string
}

type Message struct {
	Role   Role
	Text   string
	Images []Image
}

type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response.
	JSON bool
}

type Engine interface {
	Name() string
	GetModel() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Engines holds the configured providers.
type Engines struct {
	m map[string]Engine
}

func NewEngines(engs ...Engine) *Engines {
	e := &Engines{m: make(map[string]Engine, len(engs))}
	for _, eng := range engs {
		if eng != nil {
			e.m[strings.ToLower(eng.Name())] = eng
		}
	}
	return e
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("llm name is empty")
	}
	eng, ok := e.m[name]
	if !ok {
		return nil, fmt.Errorf("unknown llm_name: %s", name)
	}
	return eng, nil
}

// UserMessage is a single user turn with optional images.
func UserMessage(text string, images ...Image) Message {
	return Message{Role: RoleUser, Text: text, Images: images}
}

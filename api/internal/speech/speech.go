// Package speech builds short spoken summaries and synthesizes them.
package speech

import (
	"context"
	"errors"
	"fmt"
)

const (
	MaxInputChars = 5000
	DefaultLimit  = 150
	MaxScriptLen  = 1500
)

type Audio struct {
	Data        []byte
	ContentType string
}

type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (Audio, error)
}

var ErrEmptyAudio = errors.New("empty audio response")

// QuotaError means the provider refused because the account ran out of quota.
type QuotaError struct {
	Provider string
	Message  string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %s", e.Provider, e.Message)
}

// APIError is any other non-2xx answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s TTS error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

func IsQuotaExceeded(err error) bool {
	var q *QuotaError
	return errors.As(err, &q)
}

// Package provider wraps the external translation, speech synthesis and
// pronunciation scoring services behind small interfaces so handlers can
// be tested with stubs.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/speaknote/internal/model"
)

// Translator translates text between two language codes.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Audio is synthesized speech ready to be stored.
type Audio struct {
	Data        []byte
	ContentType string
	Ext         string // file extension including the dot
}

// Synthesizer turns text into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Scorer grades a recording against the text the user meant to say.
type Scorer interface {
	Score(ctx context.Context, audio []byte, contentType, expected string) (model.Scores, error)
}

// ErrNotConfigured is returned by providers missing credentials.
var ErrNotConfigured = errors.New("provider not configured")

// UpstreamError is a non-success answer from a provider.
type UpstreamError struct {
	Provider string
	Status   int
	Code     string
	Body     string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: upstream error %s: %s", e.Provider, e.Code, e.Body)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.Status, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

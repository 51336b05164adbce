package speech

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned when no recognizer or synthesizer can be built
var ErrUnavailable = errors.New("speech service unavailable")

// Result is one transcript update of a recognition pass
type Result struct {
	Text       string
	Final      bool
	Confidence float64
}

// Options configure a recognition pass
type Options struct {
	Language string
	Interim  bool
}

// Recognizer runs recognition passes. The returned channel is closed when the
// pass ends; cancelling ctx ends the pass early.
type Recognizer interface {
	Recognize(ctx context.Context, opts Options) (<-chan Result, error)
}

// Transcript accumulates the results of one pass
type Transcript struct {
	final   []string
	interim string
}

// Add applies one result. Final text is appended; interim text replaces the
// previous interim text.
func (t *Transcript) Add(r Result) {
	text := strings.TrimSpace(r.Text)
	if r.Final {
		if text != "" {
			t.final = append(t.final, text)
		}
		t.interim = ""
		return
	}
	t.interim = text
}

// Final returns the finalized text of the pass
func (t *Transcript) Final() string {
	return strings.TrimSpace(strings.Join(t.final, " "))
}

// Current returns the finalized text followed by the current interim text
func (t *Transcript) Current() string {
	if t.interim == "" {
		return t.Final()
	}
	return strings.TrimSpace(t.Final() + " " + t.interim)
}

// Reset clears the transcript for a new pass
func (t *Transcript) Reset() {
	t.final = nil
	t.interim = ""
}

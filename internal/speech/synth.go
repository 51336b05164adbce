package speech

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Voice is an installed synthesis voice
type Voice struct {
	Name string
	Lang string
}

// Utterance is one piece of text to speak. Zero rate, pitch and volume mean 1.0.
type Utterance struct {
	Text   string
	Rate   float64
	Pitch  float64
	Volume float64
	Voice  *Voice
}

func (u Utterance) withDefaults() Utterance {
	if u.Rate <= 0 {
		u.Rate = 1.0
	}
	if u.Pitch <= 0 {
		u.Pitch = 1.0
	}
	if u.Volume <= 0 {
		u.Volume = 1.0
	}
	return u
}

// Synthesizer speaks utterances. Speak blocks until the utterance ends, ctx
// is cancelled or Cancel is called.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
	Cancel()
	Voices() []Voice
}

// DefaultVoicePreferences are the vendor names preferred for English voices
var DefaultVoicePreferences = []string{"Google", "Natural", "Microsoft"}

// SelectVoice picks the first English voice whose name contains a preferred
// vendor, then any English voice, then the first voice. It returns nil when
// voices is empty.
func SelectVoice(voices []Voice, prefs []string) *Voice {
	if len(voices) == 0 {
		return nil
	}

	for i, v := range voices {
		if !isEnglish(v) {
			continue
		}
		for _, p := range prefs {
			if p != "" && strings.Contains(v.Name, p) {
				return &voices[i]
			}
		}
	}
	for i, v := range voices {
		if isEnglish(v) {
			return &voices[i]
		}
	}
	return &voices[0]
}

func isEnglish(v Voice) bool {
	return strings.HasPrefix(strings.ToLower(v.Lang), "en")
}

// cancelSlot holds the cancel func of the utterance in progress
type cancelSlot struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (s *cancelSlot) begin(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}
}

func (s *cancelSlot) stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// ConsoleSynthesizer prints utterances and holds for the time they would take to say
type ConsoleSynthesizer struct {
	w              io.Writer
	wordsPerMinute int
	voices         []Voice
	slot           cancelSlot
	mu             sync.Mutex
}

// NewConsoleSynthesizer writes to w, pacing speech at wordsPerMinute.
// A non-positive rate disables pacing.
func NewConsoleSynthesizer(w io.Writer, wordsPerMinute int) *ConsoleSynthesizer {
	return &ConsoleSynthesizer{
		w:              w,
		wordsPerMinute: wordsPerMinute,
		voices: []Voice{
			{Name: "Console English", Lang: "en-US"},
		},
	}
}

// Speak prints "AI: <text>" and waits out the simulated speaking time
func (s *ConsoleSynthesizer) Speak(ctx context.Context, u Utterance) error {
	u = u.withDefaults()
	ctx, done := s.slot.begin(ctx)
	defer done()

	s.mu.Lock()
	_, err := fmt.Fprintf(s.w, "AI: %s\n", u.Text)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	d := speakingTime(u.Text, s.wordsPerMinute, u.Rate)
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel ends the utterance in progress
func (s *ConsoleSynthesizer) Cancel() { s.slot.stop() }

// Voices returns the console voice
func (s *ConsoleSynthesizer) Voices() []Voice { return s.voices }

// speakingTime estimates how long text takes to say
func speakingTime(text string, wordsPerMinute int, rate float64) time.Duration {
	if wordsPerMinute <= 0 {
		return 0
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	if rate <= 0 {
		rate = 1.0
	}
	minutes := float64(words) / (float64(wordsPerMinute) * rate)
	return time.Duration(minutes * float64(time.Minute))
}

// SilentSynthesizer finishes every utterance immediately
type SilentSynthesizer struct{}

func (SilentSynthesizer) Speak(ctx context.Context, u Utterance) error { return ctx.Err() }
func (SilentSynthesizer) Cancel()                                      {}
func (SilentSynthesizer) Voices() []Voice                              { return nil }

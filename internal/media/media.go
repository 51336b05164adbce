package media

import (
	"context"
	"errors"
	"sync"
)

// Kind is the media kind of a track
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var (
	// ErrPermissionDenied is wrapped by Acquire when the user refuses access
	ErrPermissionDenied = errors.New("media permission denied")
	// ErrDeviceNotFound is wrapped by Acquire when no device of a kind exists
	ErrDeviceNotFound = errors.New("media device not found")
)

// Constraints selects which kinds of media to acquire
type Constraints struct {
	Audio bool
	Video bool
}

// Track is one live audio or video source
type Track interface {
	Kind() Kind
	Enabled() bool
	SetEnabled(enabled bool)
	Stop()
	Stopped() bool
}

// Stream groups the tracks returned by one acquisition
type Stream interface {
	AudioTracks() []Track
	VideoTracks() []Track
	Stop()
}

// Devices grants access to the camera and microphone
type Devices interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// SetAudioEnabled enables or disables every audio track of s
func SetAudioEnabled(s Stream, enabled bool) {
	if s == nil {
		return
	}
	for _, t := range s.AudioTracks() {
		t.SetEnabled(enabled)
	}
}

// Handles tracks the stream owned by a session so it can be released exactly once
type Handles struct {
	mu     sync.Mutex
	stream Stream
}

// Attach records s as the owned stream, stopping any stream held before
func (h *Handles) Attach(s Stream) {
	h.mu.Lock()
	prev := h.stream
	h.stream = s
	h.mu.Unlock()

	if prev != nil && prev != s {
		prev.Stop()
	}
}

// Stream returns the owned stream, or nil
func (h *Handles) Stream() Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stream
}

// Release stops every owned track. It reports whether anything was open and
// is safe to call more than once.
func (h *Handles) Release() bool {
	h.mu.Lock()
	s := h.stream
	h.stream = nil
	h.mu.Unlock()

	if s == nil {
		return false
	}
	s.Stop()
	return true
}

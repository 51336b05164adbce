package media

import (
	"context"
	"sync"
	"sync/atomic"

	appErrors "talentloop/internal/errors"
)

// VirtualDevices simulates a camera and microphone. It is used by the CLI,
// which has no capture hardware of its own, and by tests.
type VirtualDevices struct {
	denyAudio bool
	denyVideo bool
	noCamera  bool
	level     func() float64

	mu      sync.Mutex
	streams []*virtualStream
}

// VirtualOption configures VirtualDevices
type VirtualOption func(*VirtualDevices)

// DenyAudio makes microphone requests fail with ErrPermissionDenied
func DenyAudio() VirtualOption {
	return func(d *VirtualDevices) { d.denyAudio = true }
}

// DenyVideo makes camera requests fail with ErrPermissionDenied
func DenyVideo() VirtualOption {
	return func(d *VirtualDevices) { d.denyVideo = true }
}

// WithoutCamera makes camera requests fail with ErrDeviceNotFound
func WithoutCamera() VirtualOption {
	return func(d *VirtualDevices) { d.noCamera = true }
}

// WithMicLevel sets the level reported by virtual microphones
func WithMicLevel(level func() float64) VirtualOption {
	return func(d *VirtualDevices) { d.level = level }
}

// NewVirtualDevices creates simulated devices
func NewVirtualDevices(opts ...VirtualOption) *VirtualDevices {
	d := &VirtualDevices{
		level: func() float64 { return 30 },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Acquire returns a stream with the requested tracks
func (d *VirtualDevices) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.Audio && d.denyAudio {
		return nil, appErrors.NewMediaError(appErrors.ErrCodePermission,
			"Microphone access was denied", ErrPermissionDenied).
			WithContext("kind", string(KindAudio))
	}
	if c.Video && d.denyVideo {
		return nil, appErrors.NewMediaError(appErrors.ErrCodePermission,
			"Camera access was denied", ErrPermissionDenied).
			WithContext("kind", string(KindVideo))
	}
	if c.Video && d.noCamera {
		return nil, appErrors.NewMediaError(appErrors.ErrCodeDeviceNotFound,
			"No camera found", ErrDeviceNotFound).
			WithContext("kind", string(KindVideo))
	}

	s := &virtualStream{}
	if c.Audio {
		s.audio = append(s.audio, newVirtualTrack(KindAudio, d.level))
	}
	if c.Video {
		s.video = append(s.video, newVirtualTrack(KindVideo, nil))
	}

	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()

	return s, nil
}

// Acquisitions returns the number of streams handed out
func (d *VirtualDevices) Acquisitions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

// LiveTracks returns the number of tracks not yet stopped
func (d *VirtualDevices) LiveTracks() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	live := 0
	for _, s := range d.streams {
		for _, t := range s.tracks() {
			if !t.Stopped() {
				live++
			}
		}
	}
	return live
}

type virtualStream struct {
	audio []Track
	video []Track
}

func (s *virtualStream) AudioTracks() []Track { return s.audio }
func (s *virtualStream) VideoTracks() []Track { return s.video }

func (s *virtualStream) tracks() []Track {
	return append(append([]Track{}, s.audio...), s.video...)
}

func (s *virtualStream) Stop() {
	for _, t := range s.tracks() {
		t.Stop()
	}
}

type virtualTrack struct {
	kind    Kind
	level   func() float64
	enabled atomic.Bool
	stopped atomic.Bool
}

func newVirtualTrack(kind Kind, level func() float64) *virtualTrack {
	t := &virtualTrack{kind: kind, level: level}
	t.enabled.Store(true)
	return t
}

func (t *virtualTrack) Kind() Kind              { return t.kind }
func (t *virtualTrack) Enabled() bool           { return t.enabled.Load() }
func (t *virtualTrack) SetEnabled(enabled bool) { t.enabled.Store(enabled) }
func (t *virtualTrack) Stop()                   { t.stopped.Store(true) }
func (t *virtualTrack) Stopped() bool           { return t.stopped.Load() }

// Level reports the simulated input level. Disabled or stopped tracks are silent.
func (t *virtualTrack) Level() float64 {
	if t.level == nil || !t.Enabled() || t.Stopped() {
		return 0
	}
	return t.level()
}

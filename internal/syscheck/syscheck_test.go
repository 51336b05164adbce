package syscheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"talentloop/internal/config"
	"talentloop/internal/handoff"
	"talentloop/internal/media"
	"talentloop/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	mu    sync.Mutex
	rtts  []time.Duration
	fail  bool
	urls  []string
	calls int
}

func (p *fakePinger) Ping(ctx context.Context, url string) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, url)
	p.calls++
	if p.fail {
		return 0, errors.New("unreachable")
	}
	if len(p.rtts) == 0 {
		return 40 * time.Millisecond, nil
	}
	rtt := p.rtts[0]
	p.rtts = p.rtts[1:]
	return rtt, nil
}

func agreeWith(v bool) Agreement {
	return func(context.Context) (bool, error) { return v, nil }
}

func newChecker(p Pinger, d media.Devices, store handoff.Store) *Checker {
	cfg := config.SystemCheckConfig{Samples: 3, MinMicLevel: 5, MicSamples: 2}
	return New(Deps{Pinger: p, Devices: d, Store: store}, cfg, "http://api.local/",
		WithSampleInterval(0), WithMeterInterval(0))
}

func TestSpeed(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    float64
	}{
		{0, 100},
		{40 * time.Millisecond, 90},
		{FallbackLatency, 70},
		{380 * time.Millisecond, 5},
		{2 * time.Second, 5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Speed(tt.latency), 0.001, "latency %v", tt.latency)
	}
}

func TestRunAllStepsPass(t *testing.T) {
	ctx := context.Background()
	pinger := &fakePinger{rtts: []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 60 * time.Millisecond}}
	devices := media.NewVirtualDevices()
	store := handoff.NewMemoryStore()

	report, err := newChecker(pinger, devices, store).Run(ctx, agreeWith(true))
	require.NoError(t, err)

	assert.True(t, report.Passed)
	require.Len(t, report.Steps, 4)
	for i, name := range []string{StepNetwork, StepMicrophone, StepWebcam, StepEthics} {
		assert.Equal(t, name, report.Steps[i].Name)
		assert.True(t, report.Steps[i].Passed)
	}
	assert.Equal(t, 40*time.Millisecond, report.NetworkLatency)
	assert.InDelta(t, 90, report.NetworkSpeed, 0.001)
	assert.InDelta(t, 30, report.MicLevel, 0.001)
	assert.Equal(t, []string{"http://api.local/", "http://api.local/", "http://api.local/"}, pinger.urls)

	assert.Equal(t, 2, devices.Acquisitions())
	assert.Zero(t, devices.LiveTracks(), "every acquisition is released")

	h, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, h.SystemCheckCompleted)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name       string
		pinger     *fakePinger
		devices    *media.VirtualDevices
		agree      Agreement
		failedStep string
		detail     string
		steps      int
	}{
		{
			name:       "offline",
			pinger:     &fakePinger{fail: true},
			devices:    media.NewVirtualDevices(),
			agree:      agreeWith(true),
			failedStep: StepNetwork,
			detail:     "offline",
			steps:      1,
		},
		{
			name:       "quiet microphone",
			pinger:     &fakePinger{},
			devices:    media.NewVirtualDevices(media.WithMicLevel(func() float64 { return 2 })),
			agree:      agreeWith(true),
			failedStep: StepMicrophone,
			detail:     "level 2 below 5, speak into the microphone",
			steps:      2,
		},
		{
			name:       "microphone denied",
			pinger:     &fakePinger{},
			devices:    media.NewVirtualDevices(media.DenyAudio()),
			agree:      agreeWith(true),
			failedStep: StepMicrophone,
			detail:     "permission denied",
			steps:      2,
		},
		{
			name:       "no camera",
			pinger:     &fakePinger{},
			devices:    media.NewVirtualDevices(media.WithoutCamera()),
			agree:      agreeWith(true),
			failedStep: StepWebcam,
			detail:     "device not found",
			steps:      3,
		},
		{
			name:       "ethics declined",
			pinger:     &fakePinger{},
			devices:    media.NewVirtualDevices(),
			agree:      agreeWith(false),
			failedStep: StepEthics,
			detail:     "agreement declined",
			steps:      4,
		},
		{
			name:       "no agreement callback",
			pinger:     &fakePinger{},
			devices:    media.NewVirtualDevices(),
			failedStep: StepEthics,
			detail:     "agreement required",
			steps:      4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := handoff.NewMemoryStore()

			report, err := newChecker(tt.pinger, tt.devices, store).Run(ctx, tt.agree)
			require.NoError(t, err)

			assert.False(t, report.Passed)
			require.Len(t, report.Steps, tt.steps)
			last := report.Steps[len(report.Steps)-1]
			assert.Equal(t, tt.failedStep, last.Name)
			assert.False(t, last.Passed)
			assert.Equal(t, tt.detail, last.Detail)
			assert.Zero(t, tt.devices.LiveTracks())

			h, err := store.Load(ctx)
			require.NoError(t, err)
			assert.False(t, h.SystemCheckCompleted)
		})
	}
}

func TestOfflineUsesFallbackLatency(t *testing.T) {
	report, err := newChecker(&fakePinger{fail: true}, media.NewVirtualDevices(), nil).Run(context.Background(), agreeWith(true))
	require.NoError(t, err)
	assert.Equal(t, FallbackLatency, report.NetworkLatency)
	assert.InDelta(t, 70, report.NetworkSpeed, 0.001)
}

func TestAgreementErrorAborts(t *testing.T) {
	boom := errors.New("stdin closed")
	_, err := newChecker(&fakePinger{}, media.NewVirtualDevices(), nil).Run(context.Background(),
		func(context.Context) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestRunWithTransportPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := transport.New(srv.URL)
	checker := New(Deps{Pinger: client, Devices: media.NewVirtualDevices()},
		config.SystemCheckConfig{Samples: 2, MinMicLevel: 5}, srv.URL, WithSampleInterval(0), WithMeterInterval(0))

	report, err := checker.Run(context.Background(), agreeWith(true))
	require.NoError(t, err)
	assert.True(t, report.Passed, "any HTTP response counts as reachable")
	assert.Positive(t, report.NetworkLatency)
}

// Package syscheck runs the pre-interview device and network check.
package syscheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"talentloop/internal/config"
	appErrors "talentloop/internal/errors"
	"talentloop/internal/handoff"
	"talentloop/internal/media"
	"talentloop/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Step names in the order they run
const (
	StepNetwork    = "network"
	StepMicrophone = "microphone"
	StepWebcam     = "webcam"
	StepEthics     = "ethics"
)

const (
	// FallbackLatency is assumed when no probe succeeds
	FallbackLatency = 120 * time.Millisecond
	minSpeedMbps    = 5.0
	defaultSamples  = 5
	defaultInterval = 400 * time.Millisecond
)

// Pinger measures a round trip to a URL
type Pinger interface {
	Ping(ctx context.Context, url string) (time.Duration, error)
}

// Agreement asks the candidate to accept the interview conduct rules
type Agreement func(ctx context.Context) (bool, error)

// Deps are the collaborators of a Checker
type Deps struct {
	Pinger  Pinger
	Devices media.Devices
	Store   handoff.Store
	Logger  *appErrors.Logger
}

// Checker runs the four check steps
type Checker struct {
	pinger   Pinger
	devices  media.Devices
	store    handoff.Store
	logger   *appErrors.Logger
	tracer   trace.Tracer
	probeURL string
	samples  int
	interval time.Duration
	minLevel float64
	meter    media.LevelMeter
	timeout  time.Duration
}

// Option customises a Checker
type Option func(*Checker)

// WithSampleInterval sets the pause between network probes
func WithSampleInterval(d time.Duration) Option {
	return func(c *Checker) { c.interval = d }
}

// WithMeterInterval sets the pause between microphone level readings
func WithMeterInterval(d time.Duration) Option {
	return func(c *Checker) { c.meter.Interval = d }
}

// New creates a Checker. An empty probe URL falls back to fallbackURL.
func New(deps Deps, cfg config.SystemCheckConfig, fallbackURL string, opts ...Option) *Checker {
	logger := deps.Logger
	if logger == nil {
		logger = appErrors.NewNopLogger()
	}
	probe := cfg.ProbeURL
	if probe == "" {
		probe = fallbackURL
	}
	samples := cfg.Samples
	if samples <= 0 {
		samples = defaultSamples
	}

	c := &Checker{
		pinger:   deps.Pinger,
		devices:  deps.Devices,
		store:    deps.Store,
		logger:   logger,
		tracer:   otel.Tracer("talentloop.syscheck"),
		probeURL: probe,
		samples:  samples,
		interval: defaultInterval,
		minLevel: cfg.MinMicLevel,
		meter:    media.LevelMeter{Samples: max(cfg.MicSamples, 1), Interval: 50 * time.Millisecond},
		timeout:  cfg.Timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Speed infers a download speed in Mbps from an average round trip
func Speed(avgLatency time.Duration) float64 {
	ms := float64(avgLatency) / float64(time.Millisecond)
	return max(minSpeedMbps, 100-ms/4)
}

// Run executes the steps in order and stops at the first one that fails.
// When every step passes the handoff is marked as checked.
func (c *Checker) Run(ctx context.Context, agree Agreement) (types.SystemCheckReport, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx, span := c.tracer.Start(ctx, "syscheck.Run")
	defer span.End()

	var report types.SystemCheckReport
	steps := []func(context.Context, *types.SystemCheckReport) (types.CheckStep, error){
		c.checkNetwork,
		c.checkMicrophone,
		c.checkWebcam,
		func(ctx context.Context, _ *types.SystemCheckReport) (types.CheckStep, error) {
			return c.checkEthics(ctx, agree)
		},
	}

	for _, run := range steps {
		step, err := run(ctx, &report)
		if err != nil {
			return report, err
		}
		report.Steps = append(report.Steps, step)
		c.logger.Info("System check step finished", "step", step.Name, "passed", step.Passed, "detail", step.Detail)
		if !step.Passed {
			span.SetAttributes(attribute.String("syscheck.failed_step", step.Name))
			return report, nil
		}
	}

	report.Passed = true
	span.SetAttributes(attribute.Bool("syscheck.passed", true))
	if c.store != nil {
		if err := handoff.MarkSystemCheckCompleted(ctx, c.store); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (c *Checker) checkNetwork(ctx context.Context, report *types.SystemCheckReport) (types.CheckStep, error) {
	step := types.CheckStep{Name: StepNetwork}
	if c.pinger == nil {
		step.Detail = "offline"
		return step, nil
	}

	var total time.Duration
	ok := 0
	for i := 0; i < c.samples; i++ {
		if i > 0 && c.interval > 0 {
			select {
			case <-ctx.Done():
				return step, ctx.Err()
			case <-time.After(c.interval):
			}
		}
		rtt, err := c.pinger.Ping(ctx, c.probeURL)
		if err != nil {
			if ctx.Err() != nil {
				return step, ctx.Err()
			}
			c.logger.Debug("Network probe failed", "url", c.probeURL, "error", err)
			continue
		}
		total += rtt
		ok++
	}

	avg := FallbackLatency
	if ok > 0 {
		avg = total / time.Duration(ok)
	}
	report.NetworkLatency = avg
	report.NetworkSpeed = Speed(avg)

	step.Passed = ok > 0
	if step.Passed {
		step.Detail = fmt.Sprintf("online, %d ms, %.1f Mbps", avg.Milliseconds(), report.NetworkSpeed)
	} else {
		step.Detail = "offline"
	}
	return step, nil
}

func (c *Checker) checkMicrophone(ctx context.Context, report *types.SystemCheckReport) (types.CheckStep, error) {
	step := types.CheckStep{Name: StepMicrophone}
	stream, err := c.acquire(ctx, media.Constraints{Audio: true})
	if err != nil {
		step.Detail = describeAcquireError(err)
		return step, nil
	}
	defer stream.Stop()

	tracks := stream.AudioTracks()
	if len(tracks) == 0 {
		step.Detail = "no microphone track"
		return step, nil
	}
	level, err := c.meter.Measure(ctx, tracks[0])
	if err != nil {
		if ctx.Err() != nil {
			return step, ctx.Err()
		}
		step.Detail = err.Error()
		return step, nil
	}

	report.MicLevel = level
	step.Passed = level >= c.minLevel
	if step.Passed {
		step.Detail = fmt.Sprintf("level %.0f", level)
	} else {
		step.Detail = fmt.Sprintf("level %.0f below %.0f, speak into the microphone", level, c.minLevel)
	}
	return step, nil
}

func (c *Checker) checkWebcam(ctx context.Context, _ *types.SystemCheckReport) (types.CheckStep, error) {
	step := types.CheckStep{Name: StepWebcam}
	stream, err := c.acquire(ctx, media.Constraints{Video: true})
	if err != nil {
		step.Detail = describeAcquireError(err)
		return step, nil
	}
	defer stream.Stop()

	for _, t := range stream.VideoTracks() {
		if !t.Stopped() {
			step.Passed = true
			step.Detail = "camera live"
			return step, nil
		}
	}
	step.Detail = "no live camera track"
	return step, nil
}

func (c *Checker) checkEthics(ctx context.Context, agree Agreement) (types.CheckStep, error) {
	step := types.CheckStep{Name: StepEthics}
	if agree == nil {
		step.Detail = "agreement required"
		return step, nil
	}
	ok, err := agree(ctx)
	if err != nil {
		return step, err
	}
	step.Passed = ok
	if ok {
		step.Detail = "agreed"
	} else {
		step.Detail = "agreement declined"
	}
	return step, nil
}

func (c *Checker) acquire(ctx context.Context, cons media.Constraints) (media.Stream, error) {
	if c.devices == nil {
		return nil, media.ErrDeviceNotFound
	}
	return c.devices.Acquire(ctx, cons)
}

func describeAcquireError(err error) string {
	switch {
	case appErrors.HasCode(err, appErrors.ErrCodePermission), errors.Is(err, media.ErrPermissionDenied):
		return "permission denied"
	case appErrors.HasCode(err, appErrors.ErrCodeDeviceNotFound), errors.Is(err, media.ErrDeviceNotFound):
		return "device not found"
	default:
		return err.Error()
	}
}

package interview

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"talentloop/internal/config"
	appErrors "talentloop/internal/errors"
	"talentloop/internal/handoff"
	"talentloop/internal/media"
	"talentloop/internal/observability"
	"talentloop/internal/speech"
	"talentloop/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ConnectionErrorText = "Connection error. Please refresh."
	SessionStartedText  = "Interview session initiated."
	defaultResumeName   = "resume.pdf"

	PolicyContinue = "continue"
	PolicyBlock    = "block"
)

// ErrNotRunning is returned by user actions once the session is over
var ErrNotRunning = errors.New("interview controller is not running")

// Transport is the subset of the platform API a session uses
type Transport interface {
	StartInterview(ctx context.Context, req types.StartRequest) (*types.StartResponse, error)
	SubmitAnswer(ctx context.Context, sessionID, answer string) (*types.AnswerResponse, error)
	StopInterview(ctx context.Context, sessionID string) (*types.StopResponse, error)
	FetchResume(ctx context.Context, id string) (*types.ResumeRecord, error)
}

// Deps are the collaborators of a Controller. Transport is required. A nil
// Recognizer leaves the candidate unable to answer, a nil Synthesizer
// replaces speech with a short pause and nil Devices run without media.
type Deps struct {
	Transport   Transport
	Recognizer  speech.Recognizer
	Synthesizer speech.Synthesizer
	Devices     media.Devices
	Store       handoff.Store
	Clock       Clock
	Logger      *appErrors.Logger
	Metrics     *observability.Metrics
}

// Options are the session timings and speech settings
type Options struct {
	Duration               time.Duration
	FinalQuestionThreshold time.Duration
	WarningThreshold       time.Duration
	RestartDelay           time.Duration
	MuteWarningDuration    time.Duration
	SpeakFallbackDelay     time.Duration
	MuteReminderInterval   time.Duration
	Language               string
	PermissionPolicy       string
	EnableVideo            bool
	VoicePreferences       []string
	Rate                   float64
	Pitch                  float64
	Volume                 float64
}

// DefaultOptions returns the timings of a standard five minute interview
func DefaultOptions() Options {
	return Options{
		Duration:               5 * time.Minute,
		FinalQuestionThreshold: 15 * time.Second,
		WarningThreshold:       20 * time.Second,
		RestartDelay:           time.Second,
		MuteWarningDuration:    3 * time.Second,
		SpeakFallbackDelay:     time.Second,
		Language:               "en-US",
		PermissionPolicy:       PolicyContinue,
		EnableVideo:            true,
		VoicePreferences:       speech.DefaultVoicePreferences,
		Rate:                   1.0,
		Pitch:                  1.0,
		Volume:                 1.0,
	}
}

// OptionsFromConfig maps the interview and speech config sections to Options
func OptionsFromConfig(ic config.InterviewConfig, sc config.SpeechConfig) Options {
	opts := Options{
		Duration:               ic.Duration,
		FinalQuestionThreshold: ic.FinalQuestionThreshold,
		WarningThreshold:       ic.WarningThreshold,
		RestartDelay:           ic.RestartDelay,
		MuteWarningDuration:    ic.MuteWarningDuration,
		SpeakFallbackDelay:     ic.SpeakFallbackDelay,
		MuteReminderInterval:   ic.MuteReminderInterval,
		Language:               ic.Language,
		PermissionPolicy:       ic.PermissionPolicy,
		EnableVideo:            ic.EnableVideo,
		VoicePreferences:       sc.VoicePreferences,
		Rate:                   sc.Rate,
		Pitch:                  sc.Pitch,
		Volume:                 sc.Volume,
	}
	return opts.withDefaults()
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Duration <= 0 {
		o.Duration = d.Duration
	}
	if o.FinalQuestionThreshold <= 0 {
		o.FinalQuestionThreshold = d.FinalQuestionThreshold
	}
	if o.WarningThreshold <= 0 {
		o.WarningThreshold = d.WarningThreshold
	}
	if o.RestartDelay <= 0 {
		o.RestartDelay = d.RestartDelay
	}
	if o.MuteWarningDuration <= 0 {
		o.MuteWarningDuration = d.MuteWarningDuration
	}
	if o.SpeakFallbackDelay <= 0 {
		o.SpeakFallbackDelay = d.SpeakFallbackDelay
	}
	if o.Language == "" {
		o.Language = d.Language
	}
	if o.PermissionPolicy == "" {
		o.PermissionPolicy = d.PermissionPolicy
	}
	if len(o.VoicePreferences) == 0 {
		o.VoicePreferences = d.VoicePreferences
	}
	return o
}

// Controller drives one interview session. Every state change happens on the
// goroutine running Run; other goroutines talk to it through messages.
type Controller struct {
	deps   Deps
	opts   Options
	logger *appErrors.Logger
	tracer trace.Tracer
	voice  *speech.Voice

	msgs    chan func()
	events  chan Event
	done    chan struct{}
	started atomic.Bool

	mu   sync.RWMutex
	snap Snapshot

	// owned by the loop
	ctx             context.Context
	state           State
	paused          bool
	muted           bool
	listening       bool
	speaking        bool
	processing      bool
	ending          bool
	complete        bool
	muteWarning     bool
	mutedDuringPass bool
	pendingSpeech   bool
	question        string
	turns           []types.ConversationTurn
	session         *types.Session
	countdown       *Countdown
	gen             uint64
	passID          uint64
	speakID         uint64
	warnID          uint64
	passCancel      context.CancelFunc
	speakCancel     context.CancelFunc
	ticker          Ticker
	restartTimer    Timer
	warnTimer       Timer
	speakTimer      Timer
	reminderTimer   Timer
	handles         media.Handles
	outcome         Outcome
}

// New creates a controller for one session
func New(deps Deps, opts Options) *Controller {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = appErrors.NewNopLogger()
	}
	if deps.Store == nil {
		deps.Store = handoff.NewMemoryStore()
	}
	opts = opts.withDefaults()

	c := &Controller{
		deps:      deps,
		opts:      opts,
		logger:    deps.Logger.With("component", "interview"),
		tracer:    otel.Tracer("talentloop.interview"),
		msgs:      make(chan func(), 64),
		events:    make(chan Event, 64),
		done:      make(chan struct{}),
		question:  "Preparing your interview...",
		countdown: NewCountdown(opts.Duration, opts.FinalQuestionThreshold, opts.WarningThreshold),
		turns: []types.ConversationTurn{
			{Role: types.RoleSystem, Text: SessionStartedText, Timestamp: deps.Clock.Now()},
		},
	}
	if deps.Synthesizer != nil {
		c.voice = speech.SelectVoice(deps.Synthesizer.Voices(), opts.VoicePreferences)
	}
	c.publish()
	return c
}

// Events returns the observer channel. Events are dropped when the reader
// falls behind, and the channel closes when Run returns.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.snap
	s.Turns = slices.Clone(s.Turns)
	if s.Session != nil {
		session := *s.Session
		s.Session = &session
	}
	return s
}

// TogglePause suspends or resumes the session
func (c *Controller) TogglePause() error {
	return c.send(context.Background(), c.togglePause)
}

// ToggleMute mutes or unmutes the microphone
func (c *Controller) ToggleMute() error {
	return c.send(context.Background(), c.toggleMute)
}

// EndInterview asks the server to close the session. Run returns once the
// outcome is known.
func (c *Controller) EndInterview(ctx context.Context) error {
	return c.send(ctx, c.endInterview)
}

func (c *Controller) send(ctx context.Context, fn func()) error {
	select {
	case <-c.done:
		return ErrNotRunning
	default:
	}
	select {
	case c.msgs <- fn:
		return nil
	case <-c.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers fn to the loop unless the session is already over
func (c *Controller) post(fn func()) {
	select {
	case c.msgs <- fn:
	case <-c.done:
	}
}

// Run drives the session until it completes or ctx ends. Media is released
// on every return path.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	if !c.started.CompareAndSwap(false, true) {
		return Outcome{}, appErrors.NewSessionError(appErrors.ErrCodeInvalidRequest, "Interview controller already ran", nil)
	}
	defer close(c.done)
	defer close(c.events)

	ctx, span := c.tracer.Start(ctx, "interview.Run")
	defer span.End()

	h, err := c.deps.Store.Load(ctx)
	if err != nil {
		c.logger.LogError(err, "Failed to load interview handoff")
	}
	if h.ResumeID == "" {
		c.logger.Warn("No resume selected for the interview", "redirect", PathSystemCheck)
		span.SetAttributes(attribute.String("interview.outcome", PathSystemCheck))
		return Navigate(PathSystemCheck), nil
	}

	req := c.prepareStart(ctx, h)

	if !c.acquireMedia(ctx) {
		span.SetAttributes(attribute.String("interview.outcome", PathSystemCheck))
		return Navigate(PathSystemCheck), nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = runCtx
	c.gen = 1

	c.startTicker()
	if c.countdown.FinalQuestion() {
		c.logger.Info("Final question window reached", "remaining", FormatTime(c.countdown.Remaining()))
		c.deps.Metrics.RecordFinalQuestion(c.ctx)
		c.emit(Event{Kind: EventFinalQuestion})
	}
	c.beginStart(req)
	c.publish()

	for !c.complete {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C()
		}

		select {
		case fn := <-c.msgs:
			fn()
		case <-tick:
			c.onTick()
		case <-ctx.Done():
			c.teardown()
			c.publish()
			c.deps.Metrics.RecordSession(context.WithoutCancel(ctx), "cancelled")
			span.SetStatus(codes.Error, "interview cancelled")
			return Outcome{}, ctx.Err()
		}
		c.publish()
	}

	span.SetAttributes(attribute.String("interview.outcome", c.outcome.Path))
	if c.session != nil {
		span.SetAttributes(attribute.String("interview.session_id", c.session.ID))
	}
	return c.outcome, nil
}

func (c *Controller) prepareStart(ctx context.Context, h handoff.Handoff) types.StartRequest {
	rec, err := c.deps.Transport.FetchResume(ctx, h.ResumeID)
	if err != nil || rec == nil {
		if err != nil {
			c.logger.LogError(err, "Resume fetch failed, using fallback", "resume_id", h.ResumeID)
		}
		name := h.ResumeFileName
		if name == "" {
			name = defaultResumeName
		}
		rec = &types.ResumeRecord{FileName: name}
	}

	return types.StartRequest{
		Action:          "start",
		Resume:          rec.FileURL,
		ResumeText:      rec.ResumeText,
		ResumeFileName:  rec.FileName,
		ApplicationData: h.ApplicationData(),
	}
}

// acquireMedia reports whether the session may go on
func (c *Controller) acquireMedia(ctx context.Context) bool {
	var err error
	if c.deps.Devices == nil {
		err = appErrors.NewMediaError(appErrors.ErrCodeDeviceNotFound, "No media devices configured", media.ErrDeviceNotFound)
	} else {
		var stream media.Stream
		stream, err = c.deps.Devices.Acquire(ctx, media.Constraints{Audio: true, Video: c.opts.EnableVideo})
		if err == nil {
			c.handles.Attach(stream)
			return true
		}
	}

	c.logger.LogError(err, "Media access failed", "policy", c.opts.PermissionPolicy)
	if c.opts.PermissionPolicy == PolicyBlock {
		return false
	}
	c.emit(Event{Kind: EventDegraded, Text: err.Error()})
	return true
}

func (c *Controller) publish() {
	s := Snapshot{
		State:         c.state,
		Paused:        c.paused,
		Muted:         c.muted,
		Listening:     c.listening,
		Speaking:      c.speaking,
		Processing:    c.processing,
		Question:      c.question,
		Remaining:     c.countdown.Remaining(),
		TimeDisplay:   FormatTime(c.countdown.Remaining()),
		TimeWarning:   c.countdown.Warning(),
		FinalQuestion: c.countdown.FinalQuestion(),
		MuteWarning:   c.muteWarning,
		Turns:         slices.Clone(c.turns),
	}
	if c.session != nil {
		session := *c.session
		s.Session = &session
	}

	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

func (c *Controller) emit(e Event) {
	e.State = c.state
	e.Remaining = c.countdown.Remaining()
	select {
	case c.events <- e:
	default:
	}
}

func (c *Controller) current(gen uint64) bool {
	return gen == c.gen && !c.complete
}

func (c *Controller) appendTurn(role types.Role, text string) {
	c.turns = append(c.turns, types.ConversationTurn{Role: role, Text: text, Timestamp: c.deps.Clock.Now()})
	c.deps.Metrics.RecordTurn(c.ctx, string(role))
}

func (c *Controller) stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (c *Controller) startTicker() {
	if c.ticker == nil {
		c.ticker = c.deps.Clock.NewTicker(time.Second)
	}
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

// teardown invalidates every pending completion and releases what the
// session holds
func (c *Controller) teardown() {
	c.gen++
	c.cancelSpeech()
	c.cancelPass()
	c.stopTicker()
	c.stopTimer(&c.restartTimer)
	c.stopTimer(&c.warnTimer)
	c.stopTimer(&c.reminderTimer)
	if c.handles.Release() {
		c.logger.Debug("Released media devices")
	}
}

func outcomeLabel(o Outcome) string {
	switch o.Path {
	case PathResult:
		return "scored"
	case PathDashboard:
		return "unscored"
	case PathJobs:
		return "ended"
	default:
		return "redirected"
	}
}

package interview

import (
	"context"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"talentloop/internal/handoff"
	"talentloop/internal/media"
	"talentloop/internal/speech"
	"talentloop/internal/types"

	"github.com/stretchr/testify/require"
)

// fakeClock fires tickers and timers only when advanced
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, ch: make(chan time.Time, 1024), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, delivering ticks and running due timers
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for _, tk := range c.tickers {
		for !tk.stopped && !tk.next.After(target) {
			select {
			case tk.ch <- tk.next:
			default:
			}
			tk.next = tk.next.Add(tk.period)
		}
	}
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && !t.at.After(target) {
			t.done = true
			due = append(due, t)
		}
	}
	c.now = target
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// Pending counts timers that have neither fired nor been stopped
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	fn    func()
	done  bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

type fakeTicker struct {
	clock   *fakeClock
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

type answerReply struct {
	resp *types.AnswerResponse
	err  error
}

// fakeTransport replays scripted replies and records every call
type fakeTransport struct {
	mu         sync.Mutex
	resume     *types.ResumeRecord
	resumeErr  error
	startResp  *types.StartResponse
	startErr   error
	replies    []answerReply
	stopResp   *types.StopResponse
	stopErr    error
	answerGate chan struct{}

	starts    []types.StartRequest
	submitted []types.AnswerRequest
	stops     []string
}

func (f *fakeTransport) FetchResume(ctx context.Context, id string) (*types.ResumeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resume, f.resumeErr
}

func (f *fakeTransport) StartInterview(ctx context.Context, req types.StartRequest) (*types.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	return f.startResp, f.startErr
}

func (f *fakeTransport) SubmitAnswer(ctx context.Context, sessionID, answer string) (*types.AnswerResponse, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, types.AnswerRequest{SessionID: sessionID, Answer: answer})
	gate := f.answerGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return &types.AnswerResponse{Question: "What are you proud of?"}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.resp, r.err
}

func (f *fakeTransport) StopInterview(ctx context.Context, sessionID string) (*types.StopResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, sessionID)
	return f.stopResp, f.stopErr
}

func (f *fakeTransport) Starts() []types.StartRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.starts)
}

func (f *fakeTransport) Submitted() []types.AnswerRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.submitted)
}

func (f *fakeTransport) Stops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.stops)
}

// fakePass is one recognition pass driven by the test
type fakePass struct {
	in  chan speech.Result
	ctx context.Context
}

func (p *fakePass) say(text string) {
	p.in <- speech.Result{Text: text, Final: true, Confidence: 0.9}
}

func (p *fakePass) end() { close(p.in) }

type fakeRecognizer struct {
	mu        sync.Mutex
	passes    chan *fakePass
	calls     int
	active    int
	maxActive int
	drained   bool
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{passes: make(chan *fakePass, 32)}
}

func (r *fakeRecognizer) Recognize(ctx context.Context, opts speech.Options) (<-chan speech.Result, error) {
	p := &fakePass{in: make(chan speech.Result, 8), ctx: ctx}
	out := make(chan speech.Result)

	r.mu.Lock()
	r.calls++
	if r.drained {
		r.mu.Unlock()
		return nil, speech.ErrUnavailable
	}
	r.active++
	r.maxActive = max(r.maxActive, r.active)
	r.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			r.mu.Lock()
			r.active--
			r.mu.Unlock()
		}()
		for {
			select {
			case res, ok := <-p.in:
				if !ok {
					return
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	r.passes <- p
	return out, nil
}

func (r *fakeRecognizer) next(t *testing.T) *fakePass {
	t.Helper()
	select {
	case p := <-r.passes:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no recognition pass started")
		return nil
	}
}

func (r *fakeRecognizer) expectNoPass(t *testing.T) {
	t.Helper()
	select {
	case <-r.passes:
		t.Fatal("unexpected recognition pass")
	case <-time.After(50 * time.Millisecond):
	}
}

func (r *fakeRecognizer) drain() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drained = true
}

func (r *fakeRecognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *fakeRecognizer) MaxActive() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxActive
}

// fakeSynth records speak and cancel calls in order
type fakeSynth struct {
	mu    sync.Mutex
	log   []string
	utts  []speech.Utterance
	block bool
	err   error
}

func (s *fakeSynth) Speak(ctx context.Context, u speech.Utterance) error {
	s.mu.Lock()
	s.log = append(s.log, "speak:"+u.Text)
	s.utts = append(s.utts, u)
	block, err := s.block, s.err
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (s *fakeSynth) setBlock(block bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = block
}

func (s *fakeSynth) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, "cancel")
}

func (s *fakeSynth) Voices() []speech.Voice {
	return []speech.Voice{{Name: "Fallback", Lang: "de-DE"}, {Name: "Google US English", Lang: "en-US"}}
}

func (s *fakeSynth) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.log)
}

func (s *fakeSynth) Utterances() []speech.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.utts)
}

type runResult struct {
	outcome Outcome
	err     error
}

// harness wires a controller to fakes
type harness struct {
	t         *testing.T
	clock     *fakeClock
	transport *fakeTransport
	rec       *fakeRecognizer
	synth     *fakeSynth
	devices   *media.VirtualDevices
	store     *handoff.MemoryStore
	deps      Deps
	opts      Options

	c      *Controller
	cancel context.CancelFunc
	result chan runResult

	evMu   sync.Mutex
	events []Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		t:       t,
		clock:   newFakeClock(),
		rec:     newFakeRecognizer(),
		synth:   &fakeSynth{},
		devices: media.NewVirtualDevices(),
		store:   handoff.NewMemoryStore(),
		result:  make(chan runResult, 1),
		transport: &fakeTransport{
			resume:    &types.ResumeRecord{FileURL: "https://files.example/r1.pdf", ResumeText: "Go developer", FileName: "r1.pdf"},
			startResp: &types.StartResponse{SessionID: "s1", Question: "Tell me about yourself"},
		},
		opts: DefaultOptions(),
	}

	job := types.Job{ID: "j1", Title: "Backend Engineer", Company: "Acme", Tags: []string{"Go"}}
	require.NoError(t, handoff.BeginApplication(context.Background(), h.store, job, "c1", "r1", "cv.pdf"))

	h.deps = Deps{
		Transport:   h.transport,
		Recognizer:  h.rec,
		Synthesizer: h.synth,
		Devices:     h.devices,
		Store:       h.store,
		Clock:       h.clock,
	}
	return h
}

func (h *harness) start() {
	h.c = New(h.deps, h.opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.t.Cleanup(cancel)

	events := h.c.Events()
	go func() {
		for e := range events {
			h.evMu.Lock()
			h.events = append(h.events, e)
			h.evMu.Unlock()
		}
	}()

	go func() {
		out, err := h.c.Run(ctx)
		h.result <- runResult{out, err}
	}()
}

func (h *harness) wait() (Outcome, error) {
	h.t.Helper()
	select {
	case r := <-h.result:
		return r.outcome, r.err
	case <-time.After(3 * time.Second):
		h.t.Fatal("controller did not finish")
		return Outcome{}, nil
	}
}

func (h *harness) waitFor(cond func(Snapshot) bool, msg string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return cond(h.c.Snapshot()) }, 2*time.Second, 5*time.Millisecond, msg)
}

func (h *harness) waitForTimers(n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.clock.Pending() >= n }, 2*time.Second, 5*time.Millisecond,
		"expected %d pending timers", n)
}

func (h *harness) count(kind EventKind) int {
	h.evMu.Lock()
	defer h.evMu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (h *harness) eventsOf(kind EventKind) []Event {
	h.evMu.Lock()
	defer h.evMu.Unlock()
	var out []Event
	for _, e := range h.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

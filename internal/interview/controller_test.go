package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	appErrors "talentloop/internal/errors"
	"talentloop/internal/handoff"
	"talentloop/internal/media"
	"talentloop/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedSummary() *types.Summary {
	return &types.Summary{
		OverallScore: 9.4,
		SkillWiseScores: types.SkillScores{
			Communication:         8,
			RoleSpecificKnowledge: 7.5,
			Confidence:            9,
		},
		Strengths:        []string{"Clear answers"},
		ImprovementAreas: []string{"More detail"},
	}
}

func TestAnswerIsSubmittedAfterQuestionIsSpoken(t *testing.T) {
	h := newHarness(t)
	h.transport.stopResp = &types.StopResponse{Status: "ended"}
	h.start()

	pass := h.rec.next(t)
	snap := h.c.Snapshot()
	assert.Equal(t, "Tell me about yourself", snap.Question)
	assert.Equal(t, StateListening, snap.State)
	require.NotNil(t, snap.Session)
	assert.Equal(t, "s1", snap.Session.ID)

	log := h.synth.Log()
	require.GreaterOrEqual(t, len(log), 2)
	assert.Equal(t, []string{"cancel", "speak:Tell me about yourself"}, log[len(log)-2:],
		"synthesis is cancelled before each utterance")
	utts := h.synth.Utterances()
	require.Len(t, utts, 1)
	require.NotNil(t, utts[0].Voice)
	assert.Equal(t, "Google US English", utts[0].Voice.Name)

	pass.say("I am a developer")
	pass.end()

	require.Eventually(t, func() bool { return len(h.transport.Submitted()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, types.AnswerRequest{SessionID: "s1", Answer: "I am a developer"}, h.transport.Submitted()[0])

	starts := h.transport.Starts()
	require.Len(t, starts, 1)
	assert.Equal(t, "start", starts[0].Action)
	assert.Equal(t, "https://files.example/r1.pdf", starts[0].Resume)
	assert.Equal(t, "Go developer", starts[0].ResumeText)
	assert.Equal(t, "r1.pdf", starts[0].ResumeFileName)
	assert.Equal(t, "j1", starts[0].ApplicationData.JobID)
	assert.Equal(t, "j1", starts[0].ApplicationData.TemplateID)
	assert.Equal(t, "c1", starts[0].ApplicationData.CandidateID)

	// the next question is asked and heard
	h.rec.next(t)
	h.waitFor(func(s Snapshot) bool { return s.Question == "What are you proud of?" }, "next question")

	turns := h.c.Snapshot().Turns
	require.Len(t, turns, 4)
	assert.Equal(t, types.RoleSystem, turns[0].Role)
	assert.Equal(t, SessionStartedText, turns[0].Text)
	assert.Equal(t, types.RoleAI, turns[1].Role)
	assert.Equal(t, types.RoleCandidate, turns[2].Role)
	assert.Equal(t, "I am a developer", turns[2].Text)
	assert.Equal(t, types.RoleAI, turns[3].Role)

	require.NoError(t, h.c.EndInterview(context.Background()))
	out, err := h.wait()
	require.NoError(t, err)
	assert.Equal(t, PathJobs, out.Path)
	assert.Equal(t, []string{"s1"}, h.transport.Stops())
	assert.Zero(t, h.devices.LiveTracks(), "media is released")
	assert.Equal(t, 1, h.rec.MaxActive())
}

func TestServerStopSignalStoresScorecard(t *testing.T) {
	h := newHarness(t)
	h.transport.replies = []answerReply{{resp: &types.AnswerResponse{
		StopInterview: true,
		Status:        types.StatusCompleted,
		Summary:       completedSummary(),
	}}}
	h.start()

	pass := h.rec.next(t)
	pass.say("I shipped a payments service")
	pass.end()

	out, err := h.wait()
	require.NoError(t, err)
	assert.Equal(t, PathResult, out.Path)
	require.NotNil(t, out.Scorecard)
	assert.Equal(t, 94, out.Scorecard.OverallScore)
	assert.Empty(t, h.transport.Stops(), "a server-signalled stop is not stopped again")
	assert.Zero(t, h.devices.LiveTracks())

	stored, ok, err := handoff.Scorecard(context.Background(), h.store)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *out.Scorecard, stored)
	assert.Equal(t, types.Scorecard{
		OverallScore:         94,
		CommunicationScore:   80,
		TechnicalScore:       75,
		ConfidenceScore:      90,
		Strengths:            []string{"Clear answers"},
		Improvements:         []string{"More detail"},
		HRStatus:             DefaultHRStatus,
		ExpectedResponseTime: DefaultResponseTime,
	}, stored)

	assert.Equal(t, StateComplete, h.c.Snapshot().State)
	assert.ErrorIs(t, h.c.TogglePause(), ErrNotRunning)
}

func TestEndInterviewOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		stopResp *types.StopResponse
		stopErr  error
		wantPath string
	}{
		{"completed with summary", &types.StopResponse{Status: types.StatusCompleted, Summary: completedSummary()}, nil, PathResult},
		{"summary without status", &types.StopResponse{Summary: completedSummary()}, nil, PathResult},
		{"completed without summary", &types.StopResponse{Status: types.StatusCompleted}, nil, PathDashboard},
		{"not completed", &types.StopResponse{Status: "active"}, nil, PathJobs},
		{"stop call fails", nil, errors.New("connection reset"), PathJobs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.transport.stopResp = tt.stopResp
			h.transport.stopErr = tt.stopErr
			h.start()

			h.rec.next(t)
			require.NoError(t, h.c.EndInterview(context.Background()))

			out, err := h.wait()
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, out.Path)
			assert.Equal(t, []string{"s1"}, h.transport.Stops())
			assert.Zero(t, h.devices.LiveTracks())

			_, stored, err := handoff.Scorecard(context.Background(), h.store)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath == PathResult, stored)
		})
	}
}

func TestStopSignalWithoutSummaryEndsInterview(t *testing.T) {
	h := newHarness(t)
	h.transport.replies = []answerReply{{resp: &types.AnswerResponse{StopInterview: true}}}
	h.transport.stopResp = &types.StopResponse{Status: types.StatusCompleted, Summary: completedSummary()}
	h.start()

	pass := h.rec.next(t)
	pass.say("That is all")
	pass.end()

	out, err := h.wait()
	require.NoError(t, err)
	assert.Equal(t, PathResult, out.Path)
	assert.Equal(t, []string{"s1"}, h.transport.Stops())
}

func TestStartFailure(t *testing.T) {
	h := newHarness(t)
	h.transport.startErr = appErrors.NewNetworkError(appErrors.ErrCodeHTTPStatus, "Request failed with status 502", nil)
	h.start()

	h.waitFor(func(s Snapshot) bool { return s.Question == ConnectionErrorText }, "fallback message")
	h.rec.expectNoPass(t)

	snap := h.c.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.False(t, snap.Listening)
	assert.False(t, snap.Processing)
	assert.Nil(t, snap.Session)
	assert.Equal(t, 1, h.count(EventStartFailed))
	assert.Zero(t, h.rec.Calls())

	require.NoError(t, h.c.EndInterview(context.Background()))
	out, err := h.wait()
	require.NoError(t, err)
	assert.Equal(t, PathJobs, out.Path)
	assert.Empty(t, h.transport.Stops(), "no session means no stop call")
	assert.Len(t, h.transport.Starts(), 1, "start is not retried")
	assert.Zero(t, h.devices.LiveTracks())
}

func TestMissingResumeRedirects(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Clear(context.Background()))
	h.start()

	out, err := h.wait()
	require.NoError(t, err)
	assert.Equal(t, PathSystemCheck, out.Path)
	assert.Empty(t, h.transport.Starts())
	assert.Zero(t, h.devices.Acquisitions())
}

func TestResumeFetchFallback(t *testing.T) {
	h := newHarness(t)
	h.transport.resume = nil
	h.transport.resumeErr = errors.New("not found")
	h.start()

	h.rec.next(t)
	starts := h.transport.Starts()
	require.Len(t, starts, 1)
	assert.Empty(t, starts[0].Resume)
	assert.Empty(t, starts[0].ResumeText)
	assert.Equal(t, "cv.pdf", starts[0].ResumeFileName)
}

func TestPermissionPolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    string
		wantPath  string
		wantStart bool
	}{
		{"continue degrades", PolicyContinue, "", true},
		{"block redirects", PolicyBlock, PathSystemCheck, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.devices = media.NewVirtualDevices(media.DenyAudio())
			h.deps.Devices = h.devices
			h.opts.PermissionPolicy = tt.policy
			h.start()

			if !tt.wantStart {
				out, err := h.wait()
				require.NoError(t, err)
				assert.Equal(t, tt.wantPath, out.Path)
				assert.Empty(t, h.transport.Starts())
				return
			}

			h.rec.next(t)
			assert.Len(t, h.transport.Starts(), 1)
			require.Eventually(t, func() bool { return h.count(EventDegraded) == 1 }, time.Second, 5*time.Millisecond)
		})
	}
}

func TestMutedPassIsNeverSubmitted(t *testing.T) {
	h := newHarness(t)
	h.start()

	first := h.rec.next(t)
	require.NoError(t, h.c.ToggleMute())
	h.waitFor(func(s Snapshot) bool { return s.Muted }, "muted")

	first.say("this should not be sent")
	first.end()
	h.waitFor(func(s Snapshot) bool { return s.MuteWarning }, "mute warning raised")
	assert.Empty(t, h.transport.Submitted())
	assert.Equal(t, 1, h.count(EventMuteWarning))

	// the pass restarts after the delay, still muted
	h.waitForTimers(2)
	h.clock.Advance(time.Second)
	h.rec.next(t)

	// unmuting replaces the muted pass with a fresh one
	require.NoError(t, h.c.ToggleMute())
	fresh := h.rec.next(t)
	fresh.say("my real answer")
	fresh.end()

	require.Eventually(t, func() bool { return len(h.transport.Submitted()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "my real answer", h.transport.Submitted()[0].Answer)

	// the warning clears on its own
	h.clock.Advance(2 * time.Second)
	h.waitFor(func(s Snapshot) bool { return !s.MuteWarning }, "mute warning cleared")
}

func TestEmptyPassRestartsAfterDelay(t *testing.T) {
	h := newHarness(t)
	h.start()

	for range 3 {
		pass := h.rec.next(t)
		pass.end()
		h.waitFor(func(s Snapshot) bool { return !s.Listening }, "pass ended")
		h.rec.expectNoPass(t)
		h.waitForTimers(1)
		h.clock.Advance(time.Second)
	}
	h.rec.next(t)

	assert.Empty(t, h.transport.Submitted())
	assert.Equal(t, 1, h.rec.MaxActive(), "passes never overlap")
}

func TestFinalQuestionLatchesOnce(t *testing.T) {
	h := newHarness(t)
	h.opts.Duration = 20 * time.Second
	h.start()
	h.rec.next(t)

	for range 30 {
		h.clock.Advance(time.Second)
	}
	h.waitFor(func(s Snapshot) bool { return s.Remaining == -10*time.Second }, "timer runs past zero")

	snap := h.c.Snapshot()
	assert.True(t, snap.FinalQuestion)
	assert.True(t, snap.TimeWarning)
	assert.Equal(t, "-0:10", snap.TimeDisplay)
	assert.NotEqual(t, StateComplete, snap.State, "the timer never ends the session")

	require.Eventually(t, func() bool { return h.count(EventTick) == 30 }, time.Second, 5*time.Millisecond)
	finals := h.eventsOf(EventFinalQuestion)
	require.Len(t, finals, 1)
	assert.Equal(t, 15*time.Second, finals[0].Remaining)
}

func TestPauseSuspendsTimerAndListening(t *testing.T) {
	h := newHarness(t)
	h.start()

	first := h.rec.next(t)
	h.clock.Advance(time.Second)
	h.waitFor(func(s Snapshot) bool { return s.Remaining == 299*time.Second }, "first tick")

	require.NoError(t, h.c.TogglePause())
	h.waitFor(func(s Snapshot) bool { return s.Paused }, "paused")

	snap := h.c.Snapshot()
	assert.False(t, snap.Listening)
	assert.Equal(t, StateListening, snap.State, "the underlying state is preserved")

	// a cancelled pass is never submitted
	first.say("spoken while paused")
	h.clock.Advance(5 * time.Second)
	h.rec.expectNoPass(t)
	assert.Equal(t, 299*time.Second, h.c.Snapshot().Remaining)

	require.NoError(t, h.c.TogglePause())
	resumed := h.rec.next(t)
	h.clock.Advance(time.Second)
	h.waitFor(func(s Snapshot) bool { return s.Remaining == 298*time.Second }, "timer resumed")

	resumed.say("after resume")
	resumed.end()
	require.Eventually(t, func() bool { return len(h.transport.Submitted()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "after resume", h.transport.Submitted()[0].Answer)
	assert.Equal(t, 1, h.count(EventPaused))
	assert.Equal(t, 1, h.count(EventResumed))
}

func TestPauseCancelsSpeech(t *testing.T) {
	h := newHarness(t)
	h.synth.block = true
	h.start()

	h.waitFor(func(s Snapshot) bool { return s.Speaking }, "speaking")
	require.NoError(t, h.c.TogglePause())
	h.waitFor(func(s Snapshot) bool { return s.Paused && !s.Speaking }, "speech cancelled")
	h.rec.expectNoPass(t)

	h.synth.setBlock(false)
	require.NoError(t, h.c.TogglePause())
	h.rec.next(t)

	spoken := 0
	for _, entry := range h.synth.Log() {
		if entry == "speak:Tell me about yourself" {
			spoken++
		}
	}
	assert.Equal(t, 2, spoken, "the interrupted question is spoken again before listening")
	assert.Equal(t, StateListening, h.c.Snapshot().State)
}

func TestPauseWhileListeningDoesNotRepeatQuestion(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.rec.next(t)

	require.NoError(t, h.c.TogglePause())
	h.waitFor(func(s Snapshot) bool { return s.Paused }, "paused")
	require.NoError(t, h.c.TogglePause())
	h.rec.next(t)

	assert.Len(t, h.synth.Utterances(), 1)
}

func TestUnavailableRecognizerStopsRestarting(t *testing.T) {
	h := newHarness(t)
	h.start()

	pass := h.rec.next(t)
	h.rec.drain()
	pass.end()

	require.Eventually(t, func() bool {
		h.clock.Advance(h.opts.RestartDelay)
		return h.rec.Calls() == 2
	}, 2*time.Second, 10*time.Millisecond)

	for range 5 {
		h.clock.Advance(h.opts.RestartDelay)
	}
	h.rec.expectNoPass(t)
	assert.Equal(t, 2, h.rec.Calls(), "no pass is scheduled after the recognizer reports unavailable")
	h.waitFor(func(s Snapshot) bool { return !s.Listening }, "not listening")
}

func TestShortSessionStartsInFinalQuestionWindow(t *testing.T) {
	h := newHarness(t)
	h.opts.Duration = 10 * time.Second
	h.start()
	h.rec.next(t)

	assert.True(t, h.c.Snapshot().FinalQuestion)
	require.Eventually(t, func() bool { return h.count(EventFinalQuestion) == 1 }, time.Second, 5*time.Millisecond)

	for range 3 {
		h.clock.Advance(time.Second)
	}
	require.Eventually(t, func() bool { return h.count(EventTick) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.count(EventFinalQuestion), "the latch fires once")
	assert.Equal(t, 10*time.Second, h.eventsOf(EventFinalQuestion)[0].Remaining)
}

func TestSpeechErrorIsTreatedAsCompletion(t *testing.T) {
	h := newHarness(t)
	h.synth.err = errors.New("audio device busy")
	h.start()

	h.rec.next(t)
	assert.Equal(t, StateListening, h.c.Snapshot().State)
}

func TestNoSynthesizerWaitsBeforeListening(t *testing.T) {
	h := newHarness(t)
	h.deps.Synthesizer = nil
	h.start()

	h.waitFor(func(s Snapshot) bool { return s.Speaking }, "waiting in place of speech")
	h.rec.expectNoPass(t)
	h.waitForTimers(1)
	h.clock.Advance(time.Second)
	h.rec.next(t)
}

func TestFailedAnswerDoesNotStall(t *testing.T) {
	h := newHarness(t)
	h.transport.replies = []answerReply{{err: errors.New("503 service unavailable")}}
	h.start()

	pass := h.rec.next(t)
	pass.say("first try")
	pass.end()

	h.waitFor(func(s Snapshot) bool {
		return !s.Processing && len(s.Turns) == 3
	}, "answer failed")
	h.rec.expectNoPass(t)
	h.waitForTimers(1)
	h.clock.Advance(time.Second)

	retry := h.rec.next(t)
	retry.say("second try")
	retry.end()
	require.Eventually(t, func() bool { return len(h.transport.Submitted()) == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestLateAnswerAfterEndIsDropped(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.transport.answerGate = gate
	h.transport.replies = []answerReply{{resp: &types.AnswerResponse{Question: "Too late"}}}
	h.transport.stopResp = &types.StopResponse{Status: "ended"}
	h.start()

	pass := h.rec.next(t)
	pass.say("slow answer")
	pass.end()
	h.waitFor(func(s Snapshot) bool { return s.State == StateAwaitingServerReply }, "awaiting reply")

	require.NoError(t, h.c.EndInterview(context.Background()))
	out, err := h.wait()
	require.NoError(t, err)
	assert.Equal(t, PathJobs, out.Path)
	close(gate)

	assert.NotContains(t, h.synth.Log(), "speak:Too late")
	assert.NotEqual(t, "Too late", h.c.Snapshot().Question)
}

func TestMuteReminder(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     int
	}{
		{"disabled by default", 0, 0},
		{"periodic when enabled", 5 * time.Second, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.opts.MuteReminderInterval = tt.interval
			h.start()
			h.rec.next(t)

			require.NoError(t, h.c.ToggleMute())
			h.waitFor(func(s Snapshot) bool { return s.Muted }, "muted")

			for range 2 {
				if tt.interval > 0 {
					h.waitForTimers(1)
				}
				h.clock.Advance(5 * time.Second)
			}
			if tt.want > 0 {
				require.Eventually(t, func() bool { return h.count(EventMuteReminder) == tt.want }, time.Second, 5*time.Millisecond)
			} else {
				time.Sleep(20 * time.Millisecond)
				assert.Zero(t, h.count(EventMuteReminder))
			}
		})
	}
}

func TestCancelReleasesMedia(t *testing.T) {
	h := newHarness(t)
	h.start()
	h.rec.next(t)
	require.Equal(t, 2, h.devices.LiveTracks())

	h.cancel()
	_, err := h.wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.devices.LiveTracks())
	assert.ErrorIs(t, h.c.ToggleMute(), ErrNotRunning)
}

func TestRunOnlyOnce(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Clear(context.Background()))
	h.start()
	_, err := h.wait()
	require.NoError(t, err)

	_, err = h.c.Run(context.Background())
	assert.Error(t, err)
}

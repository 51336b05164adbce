package interview

import (
	"context"
	"errors"
	"strings"

	appErrors "talentloop/internal/errors"
	"talentloop/internal/handoff"
	"talentloop/internal/media"
	"talentloop/internal/speech"
	"talentloop/internal/types"
)

// The methods below run on the loop goroutine only.

func (c *Controller) beginStart(req types.StartRequest) {
	c.processing = true
	gen := c.gen
	go func() {
		resp, err := c.deps.Transport.StartInterview(c.ctx, req)
		c.post(func() { c.onStarted(gen, resp, err) })
	}()
}

func (c *Controller) onStarted(gen uint64, resp *types.StartResponse, err error) {
	if !c.current(gen) || c.ending {
		return
	}
	c.processing = false

	if err == nil && (resp == nil || resp.SessionID == "") {
		err = appErrors.NewSessionError(appErrors.ErrCodeNoSession, "Start response carried no session", nil)
	}
	if err != nil {
		c.logger.LogError(err, "Interview start failed")
		c.question = ConnectionErrorText
		c.emit(Event{Kind: EventStartFailed, Text: ConnectionErrorText})
		return
	}

	c.session = &types.Session{
		ID:                resp.SessionID,
		StartedAt:         c.deps.Clock.Now(),
		EstimatedDuration: c.opts.Duration,
	}
	c.logger.Info("Interview session started", "session_id", resp.SessionID)
	c.askQuestion(resp.Question)
}

func (c *Controller) askQuestion(text string) {
	c.question = text
	c.appendTurn(types.RoleAI, text)
	c.state = StateAwaitingAIUtterance
	c.emit(Event{Kind: EventQuestion, Text: text})

	if c.paused {
		c.pendingSpeech = true
		return
	}
	c.speak(text)
}

func (c *Controller) speak(text string) {
	c.cancelSpeech()
	c.pendingSpeech = false
	c.speaking = true
	c.speakID++
	id, gen := c.speakID, c.gen

	if c.deps.Synthesizer == nil {
		c.speakTimer = c.deps.Clock.AfterFunc(c.opts.SpeakFallbackDelay, func() {
			c.post(func() { c.onSpoken(gen, id, nil) })
		})
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.speakCancel = cancel
	u := speech.Utterance{
		Text:   text,
		Rate:   c.opts.Rate,
		Pitch:  c.opts.Pitch,
		Volume: c.opts.Volume,
		Voice:  c.voice,
	}
	go func() {
		err := c.deps.Synthesizer.Speak(ctx, u)
		c.post(func() { c.onSpoken(gen, id, err) })
	}()
}

// cancelSpeech stops the current utterance; its completion is then ignored
func (c *Controller) cancelSpeech() {
	if c.deps.Synthesizer != nil {
		c.deps.Synthesizer.Cancel()
	}
	if c.speakCancel != nil {
		c.speakCancel()
		c.speakCancel = nil
	}
	c.stopTimer(&c.speakTimer)
	if c.speaking {
		c.speaking = false
		c.speakID++
	}
}

func (c *Controller) onSpoken(gen, id uint64, err error) {
	if !c.current(gen) || c.ending || id != c.speakID {
		return
	}
	c.speaking = false
	if c.speakCancel != nil {
		c.speakCancel()
		c.speakCancel = nil
	}
	c.speakTimer = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("Speech synthesis failed, continuing", "error", err.Error())
	}
	if !c.paused {
		c.startListening()
	}
}

// startListening begins a recognition pass unless one is active or the
// session is busy
func (c *Controller) startListening() {
	if c.paused || c.speaking || c.listening || c.processing || c.ending || c.complete {
		return
	}
	if c.session == nil || c.deps.Recognizer == nil {
		return
	}
	c.stopTimer(&c.restartTimer)

	c.listening = true
	c.mutedDuringPass = c.muted
	c.state = StateListening
	c.passID++
	id, gen := c.passID, c.gen

	ctx, cancel := context.WithCancel(c.ctx)
	c.passCancel = cancel
	c.emit(Event{Kind: EventListening})

	go c.recognize(ctx, gen, id)
}

func (c *Controller) recognize(ctx context.Context, gen, id uint64) {
	results, err := c.deps.Recognizer.Recognize(ctx, speech.Options{Language: c.opts.Language, Interim: true})
	if err != nil {
		c.post(func() { c.onPassEnded(gen, id, "", err) })
		return
	}

	var transcript speech.Transcript
	for r := range results {
		transcript.Add(r)
		if text := transcript.Current(); text != "" {
			c.post(func() { c.onTranscript(gen, id, text) })
		}
	}
	final := transcript.Final()
	c.post(func() { c.onPassEnded(gen, id, final, nil) })
}

// cancelPass stops the active pass; its transcript is then ignored
func (c *Controller) cancelPass() {
	if c.passCancel != nil {
		c.passCancel()
		c.passCancel = nil
	}
	if c.listening {
		c.listening = false
		c.passID++
	}
}

func (c *Controller) onTranscript(gen, id uint64, text string) {
	if !c.current(gen) || id != c.passID || !c.listening {
		return
	}
	c.emit(Event{Kind: EventTranscript, Text: text})
}

func (c *Controller) onPassEnded(gen, id uint64, text string, err error) {
	if !c.current(gen) || id != c.passID || !c.listening {
		return
	}
	c.listening = false
	if c.passCancel != nil {
		c.passCancel()
		c.passCancel = nil
	}

	if err != nil {
		c.logger.LogError(err, "Speech recognition failed")
		if errors.Is(err, speech.ErrUnavailable) {
			return
		}
	}

	text = strings.TrimSpace(text)
	if !c.paused && !c.speaking && text != "" {
		if c.muted || c.mutedDuringPass {
			c.logger.Debug("Discarding transcript captured while muted")
			c.raiseMuteWarning()
		} else {
			c.handleAnswer(text)
		}
	}

	if !c.paused && !c.speaking && !c.processing {
		c.scheduleRestart()
	}
}

func (c *Controller) scheduleRestart() {
	c.stopTimer(&c.restartTimer)
	gen := c.gen
	c.restartTimer = c.deps.Clock.AfterFunc(c.opts.RestartDelay, func() {
		c.post(func() {
			if c.current(gen) {
				c.startListening()
			}
		})
	})
}

func (c *Controller) raiseMuteWarning() {
	c.muteWarning = true
	c.warnID++
	id := c.warnID
	c.emit(Event{Kind: EventMuteWarning, Text: "Your microphone is muted"})

	c.stopTimer(&c.warnTimer)
	c.warnTimer = c.deps.Clock.AfterFunc(c.opts.MuteWarningDuration, func() {
		c.post(func() {
			if id == c.warnID {
				c.muteWarning = false
			}
		})
	})
}

func (c *Controller) handleAnswer(answer string) {
	if c.processing || strings.TrimSpace(answer) == "" || c.session == nil {
		return
	}

	c.appendTurn(types.RoleCandidate, answer)
	c.processing = true
	c.state = StateAwaitingServerReply
	c.emit(Event{Kind: EventAnswer, Text: answer})

	gen, sessionID := c.gen, c.session.ID
	go func() {
		resp, err := c.deps.Transport.SubmitAnswer(c.ctx, sessionID, answer)
		c.post(func() { c.onAnswer(gen, resp, err) })
	}()
}

func (c *Controller) onAnswer(gen uint64, resp *types.AnswerResponse, err error) {
	if !c.current(gen) || c.ending {
		return
	}
	c.processing = false

	if err == nil && resp == nil {
		err = appErrors.NewSessionError(appErrors.ErrCodeDecodeResponse, "Empty answer response", nil)
	}
	if err != nil {
		c.logger.LogError(err, "Answer submission failed", "session_id", c.session.ID)
		c.deps.Metrics.RecordAnswer(c.ctx, false)
		// listen again so a failed submission does not stall the session
		c.state = StateListening
		if !c.paused {
			c.scheduleRestart()
		}
		return
	}
	c.deps.Metrics.RecordAnswer(c.ctx, true)

	if resp.StopInterview && resp.Question == "" {
		if resp.Status == types.StatusCompleted || resp.Summary != nil {
			c.processScorecard(resp.Summary)
			return
		}
		c.endInterview()
		return
	}
	c.askQuestion(resp.Question)
}

func (c *Controller) endInterview() {
	if c.ending || c.complete {
		return
	}
	c.ending = true
	c.processing = true
	c.cancelSpeech()
	c.cancelPass()
	c.stopTimer(&c.restartTimer)

	if c.session == nil {
		c.finish(Navigate(PathJobs))
		return
	}

	gen, sessionID := c.gen, c.session.ID
	go func() {
		resp, err := c.deps.Transport.StopInterview(c.ctx, sessionID)
		c.post(func() { c.onStopped(gen, resp, err) })
	}()
}

func (c *Controller) onStopped(gen uint64, resp *types.StopResponse, err error) {
	if !c.current(gen) {
		return
	}
	if err != nil {
		c.logger.LogError(err, "End interview failed", "session_id", c.session.ID)
		c.finish(Navigate(PathJobs))
		return
	}
	if resp != nil && (resp.Status == types.StatusCompleted || resp.Summary != nil) {
		c.processScorecard(resp.Summary)
		return
	}
	c.finish(Navigate(PathJobs))
}

func (c *Controller) processScorecard(summary *types.Summary) {
	if summary == nil {
		c.finish(Navigate(PathDashboard))
		return
	}

	sc := ToScorecard(*summary)
	if err := handoff.PutScorecard(c.ctx, c.deps.Store, sc); err != nil {
		c.logger.LogError(err, "Failed to store interview result")
	}
	out := Navigate(PathResult)
	out.Scorecard = &sc
	c.finish(out)
}

func (c *Controller) finish(out Outcome) {
	c.outcome = out
	c.state = StateComplete
	c.processing = false
	c.teardown()
	c.complete = true

	c.emit(Event{Kind: EventComplete, Text: out.Path})
	c.deps.Metrics.RecordSession(c.ctx, outcomeLabel(out))
	c.logger.Info("Interview session finished", "outcome", out.Path)
}

func (c *Controller) onTick() {
	if c.paused || c.complete {
		return
	}
	fired := c.countdown.Tick()
	c.emit(Event{Kind: EventTick, Text: FormatTime(c.countdown.Remaining())})
	if fired {
		c.logger.Info("Final question window reached", "remaining", FormatTime(c.countdown.Remaining()))
		c.deps.Metrics.RecordFinalQuestion(c.ctx)
		c.emit(Event{Kind: EventFinalQuestion})
	}
}

func (c *Controller) togglePause() {
	if c.complete || c.ending {
		return
	}
	c.paused = !c.paused

	if c.paused {
		c.stopTicker()
		if c.speaking || c.state == StateAwaitingAIUtterance {
			c.pendingSpeech = true
		}
		c.cancelSpeech()
		c.cancelPass()
		c.stopTimer(&c.restartTimer)
		c.emit(Event{Kind: EventPaused})
		return
	}

	c.startTicker()
	c.emit(Event{Kind: EventResumed})
	if c.pendingSpeech {
		c.speak(c.question)
		return
	}
	c.startListening()
}

func (c *Controller) toggleMute() {
	if c.complete {
		return
	}
	c.muted = !c.muted
	media.SetAudioEnabled(c.handles.Stream(), !c.muted)

	if c.muted {
		if c.listening {
			c.mutedDuringPass = true
		}
		c.emit(Event{Kind: EventMuted})
		c.scheduleReminder()
		return
	}

	c.stopTimer(&c.reminderTimer)
	c.emit(Event{Kind: EventUnmuted})
	// a pass that heard muted audio is replaced by a fresh one
	if c.listening && c.mutedDuringPass {
		c.cancelPass()
	}
	c.startListening()
}

func (c *Controller) scheduleReminder() {
	if c.opts.MuteReminderInterval <= 0 {
		return
	}
	c.stopTimer(&c.reminderTimer)
	gen := c.gen
	c.reminderTimer = c.deps.Clock.AfterFunc(c.opts.MuteReminderInterval, func() {
		c.post(func() { c.onReminder(gen) })
	})
}

func (c *Controller) onReminder(gen uint64) {
	if !c.current(gen) || !c.muted {
		return
	}
	if !c.speaking && !c.paused {
		c.logger.Info("Microphone is still muted")
		c.emit(Event{Kind: EventMuteReminder, Text: "Unmute your microphone to answer"})
	}
	c.scheduleReminder()
}

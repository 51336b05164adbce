package interview

import (
	"time"

	"talentloop/internal/types"
)

// State is the position of the controller in the turn-taking loop
type State int

const (
	StateIdle State = iota
	StateAwaitingAIUtterance
	StateListening
	StateAwaitingServerReply
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAIUtterance:
		return "awaiting_ai_utterance"
	case StateListening:
		return "listening"
	case StateAwaitingServerReply:
		return "awaiting_server_reply"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// EventKind identifies what an Event reports
type EventKind string

const (
	EventQuestion      EventKind = "question"
	EventListening     EventKind = "listening"
	EventTranscript    EventKind = "transcript"
	EventAnswer        EventKind = "answer"
	EventTick          EventKind = "tick"
	EventFinalQuestion EventKind = "final_question"
	EventMuted         EventKind = "muted"
	EventUnmuted       EventKind = "unmuted"
	EventMuteWarning   EventKind = "mute_warning"
	EventMuteReminder  EventKind = "mute_reminder"
	EventPaused        EventKind = "paused"
	EventResumed       EventKind = "resumed"
	EventStartFailed   EventKind = "start_failed"
	EventDegraded      EventKind = "degraded"
	EventComplete      EventKind = "complete"
)

// Event is sent to observers as the session progresses
type Event struct {
	Kind      EventKind
	State     State
	Text      string
	Remaining time.Duration
}

// Navigation targets a session can end on
const (
	PathSystemCheck = "/system-check"
	PathJobs        = "/jobs"
	PathDashboard   = "/dashboard"
	PathResult      = "/interview/result"
)

// Outcome is where the candidate goes once the session is over
type Outcome struct {
	Path      string
	Scorecard *types.Scorecard
}

// Navigate returns an Outcome that leads to path
func Navigate(path string) Outcome {
	return Outcome{Path: path}
}

// Snapshot is a consistent copy of the controller state
type Snapshot struct {
	State         State
	Paused        bool
	Muted         bool
	Listening     bool
	Speaking      bool
	Processing    bool
	Question      string
	Remaining     time.Duration
	TimeDisplay   string
	TimeWarning   bool
	FinalQuestion bool
	MuteWarning   bool
	Turns         []types.ConversationTurn
	Session       *types.Session
}

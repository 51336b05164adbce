package ai

import (
	"context"

	"talentloop/internal/types"
)

// Exchange is one asked question and the candidate's answer to it
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SessionContext is everything an interviewer sees about a rehearsal session
type SessionContext struct {
	CandidateID    string
	JobDescription string
	ResumeText     string
	Exchanges      []Exchange
	MaxQuestions   int
}

// QuestionNumber is the 1-based number of the next question to ask
func (s SessionContext) QuestionNumber() int {
	return len(s.Exchanges) + 1
}

// Interviewer generates rehearsal questions and the closing evaluation
type Interviewer interface {
	NextQuestion(ctx context.Context, session SessionContext) (string, error)
	Summarize(ctx context.Context, session SessionContext) (types.Summary, error)
	Name() string
	Close() error
}

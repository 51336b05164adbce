package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"talentloop/internal/config"
	appErrors "talentloop/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

const jobDescription = "Backend Engineer at Acme. Required skills: Go, SQL, Kubernetes"

func TestSkills(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{jobDescription, []string{"Go", "SQL", "Kubernetes"}},
		{"SRE at Globex. Required skills: ", nil},
		{"No list here", nil},
		{"X. Required skills: C++, C#.", []string{"C++", "C#"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Skills(tt.in), tt.in)
	}
}

func TestScriptedNextQuestion(t *testing.T) {
	s := NewScriptedInterviewer(nil)
	ctx := context.Background()
	session := SessionContext{JobDescription: jobDescription, MaxQuestions: 5}

	first, err := s.NextQuestion(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, openingQuestion, first)

	session.Exchanges = []Exchange{{Question: first, Answer: "I build services"}}
	second, err := s.NextQuestion(ctx, session)
	require.NoError(t, err)
	assert.Contains(t, second, "How have you used Go")

	again, err := s.NextQuestion(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, second, again, "questions are deterministic")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.NextQuestion(cancelled, session)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScriptedSummarize(t *testing.T) {
	s := NewScriptedInterviewer(nil)
	ctx := context.Background()

	long := strings.Repeat("I designed and operated the billing pipeline end to end ", 6)
	tests := []struct {
		name           string
		exchanges      []Exchange
		recommendation string
		check          func(t *testing.T, strengths, improvements []string)
	}{
		{
			name: "strong answers",
			exchanges: []Exchange{
				{Question: "q1", Answer: long + "in Go with a SQL store."},
				{Question: "q2", Answer: long + "deployed on Kubernetes."},
			},
			recommendation: "Shortlisted",
			check: func(t *testing.T, strengths, improvements []string) {
				assert.Contains(t, strengths, "Relevant experience with Go, SQL, Kubernetes")
				assert.Contains(t, strengths, "Assured delivery")
				assert.Empty(t, improvements)
			},
		},
		{
			name: "hesitant short answers",
			exchanges: []Exchange{
				{Question: "q1", Answer: "Um I think maybe. I guess, not sure."},
				{Question: "q2", Answer: ""},
			},
			recommendation: "Not Progressing",
			check: func(t *testing.T, strengths, improvements []string) {
				assert.Contains(t, improvements, "Reduce hedging language")
				assert.Contains(t, improvements, "Answer every question")
				assert.Contains(t, improvements, "Connect answers to the required skills")
			},
		},
		{
			name:           "nothing answered",
			recommendation: "Not Progressing",
			check: func(t *testing.T, strengths, improvements []string) {
				assert.Empty(t, strengths)
				assert.Contains(t, improvements, "Answer every question")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := s.Summarize(ctx, SessionContext{JobDescription: jobDescription, Exchanges: tt.exchanges})
			require.NoError(t, err)

			assert.Equal(t, tt.recommendation, summary.FinalRecommendation)
			for _, v := range []float64{summary.OverallScore, summary.SkillWiseScores.Communication,
				summary.SkillWiseScores.RoleSpecificKnowledge, summary.SkillWiseScores.Confidence} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 10.0)
			}
			assert.NotNil(t, summary.Strengths)
			assert.NotNil(t, summary.ImprovementAreas)
			tt.check(t, summary.Strengths, summary.ImprovementAreas)
		})
	}
}

func TestSkillMatchingUsesWholeWords(t *testing.T) {
	found := mentionedSkills([]Exchange{{Answer: "It was a good year, long ago."}}, []string{"Go"})
	assert.Empty(t, found)

	found = mentionedSkills([]Exchange{{Answer: "Mostly Go, some C++."}}, []string{"Go", "C++"})
	assert.Equal(t, []string{"Go", "C++"}, found)
}

func TestPrompts(t *testing.T) {
	p := GetDefaultPromptConfig()
	session := SessionContext{
		JobDescription: jobDescription,
		Exchanges:      []Exchange{{Question: "Why Acme?", Answer: "Scale."}},
		MaxQuestions:   5,
	}

	question := p.BuildQuestionPrompt(session)
	assert.Contains(t, question, "Ask question 2 of 5")
	assert.Contains(t, question, "Q1: Why Acme?\nA1: Scale.")
	assert.Contains(t, question, "(none provided)", "missing resume text")

	summary := p.BuildSummaryPrompt(SessionContext{JobDescription: jobDescription})
	assert.Contains(t, summary, "(no questions asked yet)")
	assert.Contains(t, summary, jobDescription)
}

func TestPromptConfigFromLoadedFiles(t *testing.T) {
	p := promptConfigFrom(config.LoadedPrompts{Summarize: "Score harshly."})
	assert.Equal(t, DefaultSystemPrompts.NextQuestion, p.SystemPrompts.NextQuestion)
	assert.Equal(t, "Score harshly.", p.SystemPrompts.Summarize)
	assert.Equal(t, DefaultUserPrompts, p.UserPrompts)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network timeout", fmt.Errorf("call: %w", timeoutErr{}), true},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"unavailable", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, false},
		{"plain", errors.New("invalid schema"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestBackoff(t *testing.T) {
	assert.GreaterOrEqual(t, backoff(time.Second, 1), time.Second)
	assert.Less(t, backoff(time.Second, 1), 1100*time.Millisecond)
	assert.GreaterOrEqual(t, backoff(time.Second, 3), 4*time.Second)
	assert.Equal(t, 30*time.Second, backoff(time.Second, 10))
}

func TestNewInterviewer(t *testing.T) {
	ctx := context.Background()
	logger := appErrors.NewNopLogger()

	tests := []struct {
		name     string
		cfg      config.AIConfig
		wantName string
		wantCode string
	}{
		{"scripted", config.AIConfig{Provider: "scripted"}, "scripted", ""},
		{"gemini without key", config.AIConfig{Provider: "gemini", Model: "gemini-2.0-flash"}, "scripted", ""},
		{"unknown", config.AIConfig{Provider: "openai"}, "", appErrors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interviewer, err := NewInterviewer(ctx, tt.cfg, logger, nil)
			if tt.wantCode != "" {
				assert.True(t, appErrors.HasCode(err, tt.wantCode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, interviewer.Name())
			assert.NoError(t, interviewer.Close())
		})
	}

	_, err := NewGeminiInterviewer(ctx, config.AIConfig{Provider: "gemini"}, logger, nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeMissingAPIKey))
}

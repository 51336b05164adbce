package ai

import (
	"fmt"
	"strings"

	"talentloop/internal/config"
)

// SystemPrompts contains the system-level instructions for each interviewer operation
type SystemPrompts struct {
	NextQuestion string
	Summarize    string
}

// UserPrompts contains user-level prompt templates with placeholders for session content
type UserPrompts struct {
	NextQuestion string
	Summarize    string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	NextQuestion: `You are an experienced technical recruiter running a spoken screening interview. Your core principles are:

- Ask exactly one question at a time, short enough to be read aloud
- Ground every question in the job description or the candidate's resume
- Follow up on vague answers before moving to a new topic
- Never reveal scores or evaluation criteria to the candidate`,

	Summarize: `You are a hiring panel lead writing the evaluation of a screening interview. Your role is to:

- Score only what the candidate actually said in the transcript
- Use a 0-10 scale for every score, where 5 is an adequate answer
- Name concrete strengths and improvement areas drawn from the answers
- Recommend "Shortlisted", "In Review" or "Not Progressing"`,
}

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	NextQuestion: `Ask question %d of %d for this interview.

**Job Description:**
-----
%s
-----

**Candidate Resume:**
-----
%s
-----

**Transcript so far:**
-----
%s
-----

Return the next question only.`,

	Summarize: `Evaluate the candidate from the interview transcript below.

Provide:
1. An overall score
2. Skill-wise scores for communication, role-specific knowledge and confidence
3. Two to four strengths
4. Two to four improvement areas
5. A final recommendation and the expected response time for the candidate

**Job Description:**
-----
%s
-----

**Transcript:**
-----
%s
-----`,
}

// PromptConfig holds configuration for customizable prompts
type PromptConfig struct {
	SystemPrompts SystemPrompts `json:"systemPrompts"`
	UserPrompts   UserPrompts   `json:"userPrompts"`
}

// GetDefaultPromptConfig returns the default prompt configuration
func GetDefaultPromptConfig() PromptConfig {
	return PromptConfig{
		SystemPrompts: DefaultSystemPrompts,
		UserPrompts:   DefaultUserPrompts,
	}
}

// promptConfigFrom applies system prompts loaded from files over the defaults
func promptConfigFrom(loaded config.LoadedPrompts) PromptConfig {
	p := GetDefaultPromptConfig()
	p.SystemPrompts.NextQuestion = resolvePrompt(loaded.NextQuestion, p.SystemPrompts.NextQuestion)
	p.SystemPrompts.Summarize = resolvePrompt(loaded.Summarize, p.SystemPrompts.Summarize)
	return p
}

// BuildQuestionPrompt formats the next-question prompt for session
func (p PromptConfig) BuildQuestionPrompt(session SessionContext) string {
	return fmt.Sprintf(resolvePrompt(p.UserPrompts.NextQuestion, DefaultUserPrompts.NextQuestion),
		session.QuestionNumber(), max(session.MaxQuestions, session.QuestionNumber()),
		orNone(session.JobDescription), orNone(session.ResumeText), transcript(session.Exchanges))
}

// BuildSummaryPrompt formats the evaluation prompt for session
func (p PromptConfig) BuildSummaryPrompt(session SessionContext) string {
	return fmt.Sprintf(resolvePrompt(p.UserPrompts.Summarize, DefaultUserPrompts.Summarize),
		orNone(session.JobDescription), transcript(session.Exchanges))
}

func transcript(exchanges []Exchange) string {
	if len(exchanges) == 0 {
		return "(no questions asked yet)"
	}
	var b strings.Builder
	for i, ex := range exchanges {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, ex.Question, i+1, orNone(ex.Answer))
	}
	return strings.TrimRight(b.String(), "\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none provided)"
	}
	return s
}

// resolvePrompt prefers a configured prompt over the built-in default
func resolvePrompt(fromConfig, fromDefault string) string {
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

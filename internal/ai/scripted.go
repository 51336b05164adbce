package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"talentloop/internal/observability"
	"talentloop/internal/types"
)

// ScriptedInterviewer asks a fixed question bank and scores answers by simple
// heuristics. It needs no model and is fully deterministic.
type ScriptedInterviewer struct {
	metrics *observability.Metrics
}

var _ Interviewer = (*ScriptedInterviewer)(nil)

// NewScriptedInterviewer creates a ScriptedInterviewer
func NewScriptedInterviewer(metrics *observability.Metrics) *ScriptedInterviewer {
	return &ScriptedInterviewer{metrics: metrics}
}

var openingQuestion = "Thanks for joining. Could you walk me through your background and what draws you to this role?"

var closingQuestions = []string{
	"Tell me about a project you are proud of and the part you personally owned.",
	"Describe a time you disagreed with a teammate on a technical decision. How did you resolve it?",
	"How do you make sure the code you ship is reliable?",
	"What would you want to learn in your first three months here?",
}

// Name implements Interviewer
func (s *ScriptedInterviewer) Name() string {
	return "scripted"
}

// NextQuestion implements Interviewer
func (s *ScriptedInterviewer) NextQuestion(ctx context.Context, session SessionContext) (string, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		s.metrics.RecordAIOperation(ctx, "next_question", time.Since(start), err)
		return "", err
	}

	bank := questionBank(session.JobDescription)
	n := len(session.Exchanges)
	s.metrics.RecordAIOperation(ctx, "next_question", time.Since(start), nil)
	return bank[n%len(bank)], nil
}

// Summarize implements Interviewer
func (s *ScriptedInterviewer) Summarize(ctx context.Context, session SessionContext) (types.Summary, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		s.metrics.RecordAIOperation(ctx, "summarize", time.Since(start), err)
		return types.Summary{}, err
	}

	summary := score(session)
	s.metrics.RecordAIOperation(ctx, "summarize", time.Since(start), nil)
	return summary, nil
}

// Close implements Interviewer
func (s *ScriptedInterviewer) Close() error {
	return nil
}

func questionBank(jobDescription string) []string {
	bank := []string{openingQuestion}
	for _, skill := range Skills(jobDescription) {
		bank = append(bank, fmt.Sprintf("How have you used %s in your recent work? Walk me through a concrete example.", skill))
	}
	return append(bank, closingQuestions...)
}

// Skills extracts the comma-separated list after "Required skills:" in a job description
func Skills(jobDescription string) []string {
	_, list, ok := strings.Cut(jobDescription, "Required skills:")
	if !ok {
		return nil
	}
	var skills []string
	for _, part := range strings.Split(list, ",") {
		if skill := strings.Trim(strings.TrimSpace(part), "."); skill != "" {
			skills = append(skills, skill)
		}
	}
	return skills
}

// score rates answers on a 0-10 scale from their length and skill coverage
func score(session SessionContext) types.Summary {
	answered := 0
	words := 0
	hedges := 0
	for _, ex := range session.Exchanges {
		fields := strings.Fields(ex.Answer)
		if len(fields) == 0 {
			continue
		}
		answered++
		words += len(fields)
		hedges += countHedges(ex.Answer)
	}

	skills := Skills(session.JobDescription)
	mentioned := mentionedSkills(session.Exchanges, skills)

	var communication, knowledge, confidence float64
	if answered > 0 {
		avgWords := float64(words) / float64(answered)
		communication = clamp(3 + avgWords/10)
		confidence = clamp(8 - float64(hedges)/float64(answered)*2)
		if len(skills) > 0 {
			knowledge = clamp(2 + 8*float64(len(mentioned))/float64(len(skills)))
		} else {
			knowledge = communication
		}
	}
	overall := round1((communication + knowledge + confidence) / 3)

	summary := types.Summary{
		OverallScore: overall,
		SkillWiseScores: types.SkillScores{
			Communication:         round1(communication),
			RoleSpecificKnowledge: round1(knowledge),
			Confidence:            round1(confidence),
		},
		Strengths:        []string{},
		ImprovementAreas: []string{},
	}

	if communication >= 6 {
		summary.Strengths = append(summary.Strengths, "Detailed, well-developed answers")
	} else {
		summary.ImprovementAreas = append(summary.ImprovementAreas, "Expand answers with concrete examples")
	}
	if len(mentioned) > 0 {
		summary.Strengths = append(summary.Strengths, "Relevant experience with "+strings.Join(mentioned, ", "))
	}
	if missing := len(skills) - len(mentioned); missing > 0 {
		summary.ImprovementAreas = append(summary.ImprovementAreas, "Connect answers to the required skills")
	}
	if confidence >= 6 {
		summary.Strengths = append(summary.Strengths, "Assured delivery")
	} else if answered > 0 {
		summary.ImprovementAreas = append(summary.ImprovementAreas, "Reduce hedging language")
	}
	if answered < len(session.Exchanges) || answered == 0 {
		summary.ImprovementAreas = append(summary.ImprovementAreas, "Answer every question")
	}

	switch {
	case overall >= 7.5:
		summary.FinalRecommendation = "Shortlisted"
	case overall >= 5:
		summary.FinalRecommendation = "In Review"
	default:
		summary.FinalRecommendation = "Not Progressing"
	}
	return summary
}

var hedgeWords = []string{"maybe", "i guess", "i think", "not sure", "kind of", "sort of", "um", "uh"}

func countHedges(answer string) int {
	text := normalize(answer)
	n := 0
	for _, h := range hedgeWords {
		n += strings.Count(text, " "+h+" ")
	}
	return n
}

func mentionedSkills(exchanges []Exchange, skills []string) []string {
	var all strings.Builder
	for _, ex := range exchanges {
		all.WriteString(normalize(ex.Answer))
	}
	text := all.String()

	var found []string
	for _, skill := range skills {
		if strings.Contains(text, normalize(skill)) {
			found = append(found, skill)
		}
	}
	return found
}

// normalize lowercases s and pads every word with single spaces so that
// skill names only match whole words
func normalize(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	if len(words) == 0 {
		return ""
	}
	return " " + strings.Join(words, " ") + " "
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(10, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Package results loads and renders the scorecard of a finished interview.
package results

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appErrors "talentloop/internal/errors"
	"talentloop/internal/formatters"
	"talentloop/internal/handoff"
	"talentloop/internal/types"
)

// RedirectPath is where the candidate is sent when there is nothing to show
const RedirectPath = "/"

// ErrNoResult is returned when the handoff holds no readable scorecard
var ErrNoResult = errors.New("no interview result available")

// Load returns the stored scorecard. A missing or unreadable result wraps
// ErrNoResult and carries the redirect path in its context.
func Load(ctx context.Context, store handoff.Store) (types.Scorecard, error) {
	sc, ok, err := handoff.Scorecard(ctx, store)
	if err != nil {
		return types.Scorecard{}, noResult("Stored interview result could not be read", err)
	}
	if !ok {
		return types.Scorecard{}, noResult("No interview result found", ErrNoResult)
	}
	return sc, nil
}

func noResult(message string, cause error) error {
	if !errors.Is(cause, ErrNoResult) {
		cause = fmt.Errorf("%w: %w", ErrNoResult, cause)
	}
	return appErrors.NewSessionError(appErrors.ErrCodeResultMissing, message, cause).
		WithContext("redirect", RedirectPath)
}

// Wait blocks until a scorecard appears in a file-backed handoff or ctx ends
func Wait(ctx context.Context, store *handoff.FileStore, debounce time.Duration) (types.Scorecard, error) {
	if sc, err := Load(ctx, store); err == nil {
		return sc, nil
	}

	updates, err := store.Watch(ctx, debounce)
	if err != nil {
		return types.Scorecard{}, err
	}
	for {
		select {
		case <-ctx.Done():
			return types.Scorecard{}, noResult("Gave up waiting for the interview result", ctx.Err())
		case h, ok := <-updates:
			if !ok {
				return types.Scorecard{}, noResult("Gave up waiting for the interview result", ctx.Err())
			}
			if h.InterviewResult != nil {
				return *h.InterviewResult, nil
			}
		}
	}
}

// ScoreBand labels a 0-100 score
func ScoreBand(score float64) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	default:
		return "Needs Improvement"
	}
}

// NewRegistry returns the shared formatter registry with the scorecard views added
func NewRegistry() *formatters.FormatterRegistry {
	registry := formatters.NewFormatterRegistry()
	registry.RegisterFormatter("text", "Scorecard", &TextFormatter{})
	registry.RegisterFormatter("markdown", "Scorecard", &MarkdownFormatter{})
	return registry
}

// Render formats sc as json, text, markdown or yaml
func Render(sc types.Scorecard, format string) (string, error) {
	out, err := NewRegistry().Format(sc, format)
	if err != nil {
		return "", appErrors.NewValidationError(appErrors.ErrCodeInvalidFormat, "Unsupported result format", err).
			WithContext("format", format)
	}
	return out, nil
}

// TextFormatter renders a scorecard for the terminal
type TextFormatter struct{}

func (f *TextFormatter) Format(data any) (string, error) {
	sc, ok := data.(types.Scorecard)
	if !ok {
		return "", fmt.Errorf("expected Scorecard, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== INTERVIEW RESULT ===\n")
	output.WriteString(fmt.Sprintf("Overall Match: %d%% (%s)\n\n", sc.OverallScore, ScoreBand(float64(sc.OverallScore))))
	output.WriteString(fmt.Sprintf("Communication: %.0f%%\n", sc.CommunicationScore))
	output.WriteString(fmt.Sprintf("Technical:     %.0f%%\n", sc.TechnicalScore))
	output.WriteString(fmt.Sprintf("Confidence:    %.0f%%\n\n", sc.ConfidenceScore))

	output.WriteString("=== NEXT STEPS ===\n")
	output.WriteString(fmt.Sprintf("HR Review Status:  %s\n", sc.HRStatus))
	output.WriteString(fmt.Sprintf("Expected Response: %s\n\n", sc.ExpectedResponseTime))

	writeList(&output, "=== CORE STRENGTHS ===", "- ", sc.Strengths)
	output.WriteString("\n")
	writeList(&output, "=== AREAS TO POLISH ===", "- ", sc.Improvements)

	return output.String(), nil
}

func (f *TextFormatter) SupportedType() string {
	return "Scorecard"
}

// MarkdownFormatter renders a scorecard as markdown
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(data any) (string, error) {
	sc, ok := data.(types.Scorecard)
	if !ok {
		return "", fmt.Errorf("expected Scorecard, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Interview Result\n\n")
	output.WriteString(fmt.Sprintf("**Overall Match:** %d%% (%s)\n\n", sc.OverallScore, ScoreBand(float64(sc.OverallScore))))
	output.WriteString("| Skill | Score |\n|-------|-------|\n")
	output.WriteString(fmt.Sprintf("| Communication | %.0f%% |\n", sc.CommunicationScore))
	output.WriteString(fmt.Sprintf("| Technical | %.0f%% |\n", sc.TechnicalScore))
	output.WriteString(fmt.Sprintf("| Confidence | %.0f%% |\n\n", sc.ConfidenceScore))

	output.WriteString("## Next Steps\n\n")
	output.WriteString(fmt.Sprintf("- **HR Review Status:** %s\n", sc.HRStatus))
	output.WriteString(fmt.Sprintf("- **Expected Response:** %s\n\n", sc.ExpectedResponseTime))

	writeList(&output, "## Core Strengths\n", "- ", sc.Strengths)
	output.WriteString("\n")
	writeList(&output, "## Areas to Polish\n", "- ", sc.Improvements)

	return output.String(), nil
}

func (f *MarkdownFormatter) SupportedType() string {
	return "Scorecard"
}

func writeList(b *strings.Builder, title, bullet string, items []string) {
	b.WriteString(title + "\n")
	if len(items) == 0 {
		b.WriteString(bullet + "None noted\n")
		return
	}
	for _, item := range items {
		b.WriteString(bullet + item + "\n")
	}
}

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricToggles switches metric families on and off
type MetricToggles struct {
	Transport         bool
	TransportDuration bool
	Interview         bool
	InterviewTurns    bool
	AI                bool
	AIDuration        bool
}

// AllMetrics enables every metric family
func AllMetrics() MetricToggles {
	return MetricToggles{
		Transport:         true,
		TransportDuration: true,
		Interview:         true,
		InterviewTurns:    true,
		AI:                true,
		AIDuration:        true,
	}
}

// Metrics holds all custom metrics for talentloop.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	toggles MetricToggles

	// API client metrics
	TransportRequests metric.Int64Counter
	TransportDuration metric.Float64Histogram
	TransportErrors   metric.Int64Counter

	// Interview session metrics
	InterviewSessions metric.Int64Counter
	InterviewAnswers  metric.Int64Counter
	InterviewTurns    metric.Int64Counter
	FinalQuestions    metric.Int64Counter

	// Rehearsal interviewer metrics
	AIRequestCount   metric.Int64Counter
	AIProcessingTime metric.Float64Histogram
	AIErrorCount     metric.Int64Counter

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// NewMetrics creates all instruments on meter
func NewMetrics(meter metric.Meter, toggles MetricToggles) (*Metrics, error) {
	m := &Metrics{toggles: toggles}

	if err := m.createTransportMetrics(meter); err != nil {
		return nil, err
	}

	if err := m.createInterviewMetrics(meter); err != nil {
		return nil, err
	}

	if err := m.createAIMetrics(meter); err != nil {
		return nil, err
	}

	var err error
	m.RateLimitHits, err = meter.Int64Counter(
		"talentloop_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

func (m *Metrics) createTransportMetrics(meter metric.Meter) error {
	var err error

	m.TransportRequests, err = meter.Int64Counter(
		"talentloop_transport_requests_total",
		metric.WithDescription("Total number of platform API requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transport request count metric: %w", err)
	}

	m.TransportDuration, err = meter.Float64Histogram(
		"talentloop_transport_duration_seconds",
		metric.WithDescription("Time spent waiting for platform API responses"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transport duration metric: %w", err)
	}

	m.TransportErrors, err = meter.Int64Counter(
		"talentloop_transport_errors_total",
		metric.WithDescription("Total number of failed platform API requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create transport error count metric: %w", err)
	}

	return nil
}

func (m *Metrics) createInterviewMetrics(meter metric.Meter) error {
	var err error

	m.InterviewSessions, err = meter.Int64Counter(
		"talentloop_interview_sessions_total",
		metric.WithDescription("Interview sessions by outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create interview sessions metric: %w", err)
	}

	m.InterviewAnswers, err = meter.Int64Counter(
		"talentloop_interview_answers_total",
		metric.WithDescription("Answers submitted to the interview endpoint"),
	)
	if err != nil {
		return fmt.Errorf("failed to create interview answers metric: %w", err)
	}

	m.InterviewTurns, err = meter.Int64Counter(
		"talentloop_interview_turns_total",
		metric.WithDescription("Conversation turns appended, by role"),
	)
	if err != nil {
		return fmt.Errorf("failed to create interview turns metric: %w", err)
	}

	m.FinalQuestions, err = meter.Int64Counter(
		"talentloop_interview_final_question_total",
		metric.WithDescription("Sessions that entered the final question phase"),
	)
	if err != nil {
		return fmt.Errorf("failed to create final question metric: %w", err)
	}

	return nil
}

func (m *Metrics) createAIMetrics(meter metric.Meter) error {
	var err error

	m.AIProcessingTime, err = meter.Float64Histogram(
		"talentloop_ai_processing_duration_seconds",
		metric.WithDescription("Time spent generating rehearsal questions and summaries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AIRequestCount, err = meter.Int64Counter(
		"talentloop_ai_requests_total",
		metric.WithDescription("Total number of rehearsal interviewer requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	m.AIErrorCount, err = meter.Int64Counter(
		"talentloop_ai_errors_total",
		metric.WithDescription("Total number of rehearsal interviewer errors"),
	)
	if err != nil {
		return fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	return nil
}

// RecordRequest records one platform API call
func (m *Metrics) RecordRequest(ctx context.Context, operation string, status int, duration time.Duration, err error) {
	if m == nil || !m.toggles.Transport {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("status", status),
		attribute.Bool("success", err == nil),
	)

	m.TransportRequests.Add(ctx, 1, attrs)
	if m.toggles.TransportDuration {
		m.TransportDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil {
		m.TransportErrors.Add(ctx, 1, attrs)
	}
}

// RecordSession records how an interview session ended
func (m *Metrics) RecordSession(ctx context.Context, outcome string) {
	if m == nil || !m.toggles.Interview {
		return
	}
	m.InterviewSessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAnswer records an answer submission
func (m *Metrics) RecordAnswer(ctx context.Context, success bool) {
	if m == nil || !m.toggles.Interview {
		return
	}
	m.InterviewAnswers.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordTurn records an appended conversation turn
func (m *Metrics) RecordTurn(ctx context.Context, role string) {
	if m == nil || !m.toggles.Interview || !m.toggles.InterviewTurns {
		return
	}
	m.InterviewTurns.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
}

// RecordFinalQuestion records the final question latch firing
func (m *Metrics) RecordFinalQuestion(ctx context.Context) {
	if m == nil || !m.toggles.Interview {
		return
	}
	m.FinalQuestions.Add(ctx, 1)
}

// RecordAIOperation records one rehearsal interviewer call
func (m *Metrics) RecordAIOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	if m == nil || !m.toggles.AI {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	)

	m.AIRequestCount.Add(ctx, 1, attrs)
	if m.toggles.AIDuration {
		m.AIProcessingTime.Record(ctx, duration.Seconds(), attrs)
	}
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, attrs)
	}
}

// RecordRateLimitHit records a rejected or delayed request
func (m *Metrics) RecordRateLimitHit(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}

package observability

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordRequest(ctx, "interview.answer", 200, time.Second, nil)
		m.RecordSession(ctx, "completed")
		m.RecordAnswer(ctx, true)
		m.RecordTurn(ctx, "ai")
		m.RecordFinalQuestion(ctx)
		m.RecordAIOperation(ctx, "next_question", time.Second, errors.New("boom"))
		m.RecordRateLimitHit(ctx, "client")
	})
}

func TestMetricsRecordToReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	toggles := AllMetrics()
	toggles.InterviewTurns = false

	m, err := NewMetrics(provider.Meter("test"), toggles)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRequest(ctx, "interview.start", 500, 10*time.Millisecond, errors.New("server error"))
	m.RecordSession(ctx, "completed")
	m.RecordTurn(ctx, "candidate")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			names[md.Name] = true
		}
	}

	assert.True(t, names["talentloop_transport_requests_total"])
	assert.True(t, names["talentloop_transport_errors_total"])
	assert.True(t, names["talentloop_transport_duration_seconds"])
	assert.True(t, names["talentloop_interview_sessions_total"])
	assert.False(t, names["talentloop_interview_turns_total"], "turn tracking is switched off")
}

func TestDisabledManagerIsPassThrough(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false})
	require.NoError(t, err)

	assert.Nil(t, om.GetMetrics())
	assert.Equal(t, http.DefaultTransport, om.HTTPTransport(nil))
	assert.NoError(t, om.Shutdown(context.Background()))

	var nilManager *ObservabilityManager
	assert.Nil(t, nilManager.GetMetrics())
	assert.NotNil(t, nilManager.Tracer("x"))
}

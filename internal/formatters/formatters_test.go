package formatters

import (
	"testing"
	"time"

	"talentloop/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatJobs(t *testing.T) {
	jobs := []types.Job{
		{ID: "j1", Title: "Backend Engineer", Company: "Acme", Location: "Remote", Tags: []string{"Go", "SQL"}, Saved: true},
		{ID: "j2", Title: "SRE", Company: "Globex"},
	}
	registry := NewFormatterRegistry()

	text, err := registry.Format(jobs, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "j1  Backend Engineer at Acme [saved]")
	assert.Contains(t, text, "Skills: Go, SQL")
	assert.Contains(t, text, "j2  SRE at Globex\n")

	md, err := registry.Format(jobs, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "| j1 | Backend Engineer | Acme | Remote | Go, SQL |")

	empty, err := registry.Format([]types.Job{}, "text")
	require.NoError(t, err)
	assert.Equal(t, "No jobs found.\n", empty)
}

func TestFormatFallsBackToGeneric(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(types.Profile{Email: "a@b.c"}, "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "email: a@b.c")

	_, err = registry.Format(types.Profile{}, "markdown")
	assert.Error(t, err, "profile has no markdown view and markdown has no generic formatter")
}

func TestFormatSystemCheck(t *testing.T) {
	report := types.SystemCheckReport{
		Steps: []types.CheckStep{
			{Name: "network", Passed: true, Detail: "82 Mbps"},
			{Name: "microphone", Passed: false, Detail: "level 2 below 5"},
		},
		NetworkLatency: 70 * time.Millisecond,
	}

	out, err := NewFormatterRegistry().Format(report, "text")
	require.NoError(t, err)
	assert.Contains(t, out, "[ OK ] network - 82 Mbps")
	assert.Contains(t, out, "[FAIL] microphone - level 2 below 5")
	assert.Contains(t, out, "Some checks failed")
}

func TestDataType(t *testing.T) {
	tests := []struct {
		data any
		want string
	}{
		{types.Scorecard{}, "Scorecard"},
		{[]types.Job{}, "JobList"},
		{[]types.Application{}, "ApplicationList"},
		{types.Profile{}, "Profile"},
		{types.SystemCheckReport{}, "SystemCheckReport"},
		{map[string]string{}, "any"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DataType(tt.data))
	}
}

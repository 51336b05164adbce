package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	appErrors "talentloop/internal/errors"
	"talentloop/internal/interview"
	"talentloop/internal/transport"
	"talentloop/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResumeFlags(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    map[string]string
		wantErr string
	}{
		{"empty", nil, map[string]string{}, ""},
		{"pairs", []string{"r1=cv.txt", " r2 = other/cv.md "}, map[string]string{"r1": "cv.txt", "r2": "other/cv.md"}, ""},
		{"path with equals", []string{"r1=a=b.txt"}, map[string]string{"r1": "a=b.txt"}, ""},
		{"missing separator", []string{"r1"}, nil, "expected id=path"},
		{"missing path", []string{"r1="}, nil, "expected id=path"},
		{"duplicate id", []string{"r1=a.txt", "r1=b.txt"}, nil, "duplicate resume id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResumeFlags(tt.values)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPromptAgreement(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			agreed, err := promptAgreement(strings.NewReader(tt.input), &out)(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, agreed)
			assert.Contains(t, out.String(), "Do you agree?")
		})
	}
}

func TestReadPassword(t *testing.T) {
	t.Run("stdin line", func(t *testing.T) {
		t.Setenv("TALENTLOOP_PASSWORD", "")
		p, err := readPassword(strings.NewReader("s3cret\r\nignored\n"))
		require.NoError(t, err)
		assert.Equal(t, "s3cret", p)
	})

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("TALENTLOOP_PASSWORD", "from-env")
		p, err := readPassword(strings.NewReader("s3cret\n"))
		require.NoError(t, err)
		assert.Equal(t, "from-env", p)
	})

	t.Run("empty", func(t *testing.T) {
		t.Setenv("TALENTLOOP_PASSWORD", "")
		_, err := readPassword(strings.NewReader(""))
		assert.True(t, appErrors.HasCode(err, appErrors.ErrCodeInvalidRequest))
	})
}

type fakeControls struct {
	mu      sync.Mutex
	calls   []string
	running bool
}

func (f *fakeControls) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if !f.running {
		return interview.ErrNotRunning
	}
	return nil
}

func (f *fakeControls) TogglePause() error                 { return f.record("pause") }
func (f *fakeControls) ToggleMute() error                  { return f.record("mute") }
func (f *fakeControls) EndInterview(context.Context) error { return f.record("end") }

func drain(lines <-chan string) []string {
	var got []string
	for line := range lines {
		got = append(got, line)
	}
	return got
}

func TestFeedInput(t *testing.T) {
	t.Run("answers and controls", func(t *testing.T) {
		ctrl := &fakeControls{running: true}
		lines := make(chan string, 10)
		in := strings.NewReader("first answer\n\n/pause\n/pause\n/mute\nsecond answer\n")

		feedInput(context.Background(), in, lines, ctrl)

		assert.Equal(t, []string{"first answer", "second answer"}, drain(lines))
		assert.Equal(t, []string{"pause", "pause", "mute", "end"}, ctrl.calls, "end of input ends the interview")
	})

	t.Run("end command stops reading", func(t *testing.T) {
		ctrl := &fakeControls{running: true}
		lines := make(chan string, 10)

		feedInput(context.Background(), strings.NewReader("/end\nlate answer\n"), lines, ctrl)

		assert.Empty(t, drain(lines))
		assert.Equal(t, []string{"end"}, ctrl.calls)
	})

	t.Run("finished session stops reading", func(t *testing.T) {
		ctrl := &fakeControls{running: false}
		lines := make(chan string, 10)

		feedInput(context.Background(), strings.NewReader("/mute\nlate answer\n"), lines, ctrl)

		assert.Empty(t, drain(lines))
		assert.Equal(t, []string{"mute"}, ctrl.calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ctrl := &fakeControls{running: true}
		lines := make(chan string)

		feedInput(ctx, strings.NewReader("answer\n"), lines, ctrl)

		assert.Empty(t, drain(lines))
		assert.Empty(t, ctrl.calls)
	})
}

func TestPrintEvents(t *testing.T) {
	events := make(chan interview.Event, 8)
	events <- interview.Event{Kind: interview.EventQuestion, Text: "Tell me about Go."}
	events <- interview.Event{Kind: interview.EventListening}
	events <- interview.Event{Kind: interview.EventTick, Remaining: 4 * time.Minute, Text: "4:00"}
	events <- interview.Event{Kind: interview.EventTick, Remaining: 3*time.Minute + 59*time.Second, Text: "3:59"}
	events <- interview.Event{Kind: interview.EventFinalQuestion}
	events <- interview.Event{Kind: interview.EventComplete}
	close(events)

	t.Run("with questions", func(t *testing.T) {
		var out bytes.Buffer
		printEvents(&out, events, true)

		got := out.String()
		assert.Contains(t, got, "AI: Tell me about Go.")
		assert.Contains(t, got, "Listening.")
		assert.Contains(t, got, "4:00 left")
		assert.NotContains(t, got, "3:59")
		assert.Contains(t, got, "Final question.")
		assert.Contains(t, got, "Interview complete.")
	})

	t.Run("questions spoken elsewhere", func(t *testing.T) {
		quiet := make(chan interview.Event, 1)
		quiet <- interview.Event{Kind: interview.EventQuestion, Text: "Tell me about Go."}
		close(quiet)

		var out bytes.Buffer
		printEvents(&out, quiet, false)
		assert.Empty(t, out.String())
	})
}

func TestFindJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"j1","title":"Backend Engineer","company":"Acme","tags":["Go"]}]}`))
	}))
	t.Cleanup(srv.Close)
	client := transport.New(srv.URL)
	ctx := context.Background()

	embedded := &types.Job{ID: "j9", Title: "Embedded"}
	assert.Equal(t, *embedded, findJob(ctx, client, "j9", &types.Application{Job: embedded}))

	job := findJob(ctx, client, "j1", &types.Application{})
	assert.Equal(t, "Acme", job.Company)

	assert.Equal(t, types.Job{ID: "j2"}, findJob(ctx, client, "j2", &types.Application{}))
}

func TestSmallHelpers(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "x", orDash("x"))
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty())
}

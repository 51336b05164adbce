package speech

import (
	"context"
	"strings"
)

// LineRecognizer treats each input line as one spoken answer. Lines that
// arrive between passes are held until the next pass starts.
type LineRecognizer struct {
	lines <-chan string
}

// NewLineRecognizer reads answers from lines. Closing lines ends every later
// pass with no result.
func NewLineRecognizer(lines <-chan string) *LineRecognizer {
	return &LineRecognizer{lines: lines}
}

// Recognize waits for the next line or for ctx to end
func (r *LineRecognizer) Recognize(ctx context.Context, opts Options) (<-chan Result, error) {
	if r == nil || r.lines == nil {
		return nil, ErrUnavailable
	}

	out := make(chan Result, 2)
	go func() {
		defer close(out)

		select {
		case <-ctx.Done():
			return
		case line, ok := <-r.lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				return
			}
			if opts.Interim {
				out <- Result{Text: line}
			}
			out <- Result{Text: line, Final: true, Confidence: 1}
		}
	}()
	return out, nil
}

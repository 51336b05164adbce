package speech

import (
	"context"
	"fmt"
	"io"

	"talentloop/internal/config"
	appErrors "talentloop/internal/errors"
)

// NewRecognizer builds the recognizer named by kind. lines feeds the console
// recognizer and is ignored otherwise.
func NewRecognizer(ctx context.Context, kind string, cfg config.SpeechConfig, lines <-chan string, logger *appErrors.Logger) (Recognizer, error) {
	switch kind {
	case "console":
		return NewLineRecognizer(lines), nil
	case "google":
		if cfg.AudioFile == "" {
			return nil, fmt.Errorf("%w: speech.audioFile is required for the google recognizer", ErrUnavailable)
		}
		source, err := NewPCMFileSource(cfg.AudioFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return NewGoogleRecognizer(ctx, source, cfg.SampleRateHz, logger)
	default:
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported speech recognizer: %s", kind), nil)
	}
}

// NewSynthesizer builds the synthesizer named by kind
func NewSynthesizer(kind string, cfg config.SpeechConfig, w io.Writer) (Synthesizer, error) {
	switch kind {
	case "console":
		return NewConsoleSynthesizer(w, cfg.WordsPerMinute), nil
	case "silent":
		return SilentSynthesizer{}, nil
	default:
		return nil, appErrors.NewConfigError(appErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported speech synthesizer: %s", kind), nil)
	}
}

package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	appErrors "talentloop/internal/errors"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
)

// AudioSource captures one utterance of raw LINEAR16 audio
type AudioSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// exhaustible is implemented by sources that can run out of audio
type exhaustible interface {
	Exhausted() bool
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// GoogleRecognizer transcribes utterances with Cloud Speech-to-Text
type GoogleRecognizer struct {
	client    *speechapi.Client
	recognize recognizeFunc
	source    AudioSource
	logger    *appErrors.Logger
	drained   atomic.Bool

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

// NewGoogleRecognizer connects to Cloud Speech using application default credentials
func NewGoogleRecognizer(ctx context.Context, source AudioSource, sampleRateHz int32, logger *appErrors.Logger) (*GoogleRecognizer, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: no audio source configured", ErrUnavailable)
	}

	c, err := speechapi.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	g := newGoogleRecognizer(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return c.Recognize(ctx, req)
	}, source, sampleRateHz, logger)
	g.client = c
	return g, nil
}

func newGoogleRecognizer(fn recognizeFunc, source AudioSource, sampleRateHz int32, logger *appErrors.Logger) *GoogleRecognizer {
	if sampleRateHz <= 0 {
		sampleRateHz = 16000
	}
	if logger == nil {
		logger = appErrors.NewNopLogger()
	}
	return &GoogleRecognizer{
		recognize:    fn,
		source:       source,
		logger:       logger,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: sampleRateHz,
	}
}

// Close releases the underlying client
func (g *GoogleRecognizer) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Recognize captures one utterance and emits its best transcript as a final result
func (g *GoogleRecognizer) Recognize(ctx context.Context, opts Options) (<-chan Result, error) {
	if g == nil || g.recognize == nil {
		return nil, ErrUnavailable
	}
	if g.sourceDrained() {
		return nil, fmt.Errorf("%w: audio source exhausted", ErrUnavailable)
	}

	language := opts.Language
	if language == "" {
		language = "en-US"
	}

	out := make(chan Result, 1)
	go func() {
		defer close(out)

		audio, err := g.source.Capture(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !g.drained.Swap(true) {
					g.logger.Info("Audio source exhausted, recognition stops")
				}
				return
			}
			if !errors.Is(err, context.Canceled) {
				g.logger.LogError(appErrors.NewSpeechError(appErrors.ErrCodeSpeechFailed, "Audio capture failed", err),
					"Recognition pass ended without audio")
			}
			return
		}
		if len(audio) == 0 {
			return
		}

		resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{
			Config: &speechpb.RecognitionConfig{
				Encoding:                   g.Encoding,
				SampleRateHertz:            g.SampleRateHz,
				LanguageCode:               language,
				EnableAutomaticPunctuation: true,
			},
			Audio: &speechpb.RecognitionAudio{
				AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
			},
		})
		if err != nil {
			if ctx.Err() == nil {
				g.logger.LogError(appErrors.NewSpeechError(appErrors.ErrCodeSpeechFailed, "Speech recognition failed", err),
					"Recognition pass ended without transcript",
					"language", language)
			}
			return
		}

		text, confidence := bestAlternative(resp)
		if text == "" {
			return
		}
		out <- Result{Text: text, Final: true, Confidence: confidence}
	}()
	return out, nil
}

// bestAlternative picks the highest-confidence transcript across all results
func bestAlternative(resp *speechpb.RecognizeResponse) (string, float64) {
	var bestText string
	var bestConf float64
	for _, r := range resp.GetResults() {
		for _, alt := range r.GetAlternatives() {
			if alt.GetTranscript() != "" && float64(alt.GetConfidence()) >= bestConf {
				bestText = alt.GetTranscript()
				bestConf = float64(alt.GetConfidence())
			}
		}
	}
	return bestText, bestConf
}

func (g *GoogleRecognizer) sourceDrained() bool {
	if g.drained.Load() {
		return true
	}
	if src, ok := g.source.(exhaustible); ok && src.Exhausted() {
		g.drained.Store(true)
		g.logger.Info("Audio source exhausted, recognition stops")
		return true
	}
	return false
}

// PCMFileSource replays raw LINEAR16 files, one file per utterance, in name order
type PCMFileSource struct {
	mu    sync.Mutex
	paths []string
}

// NewPCMFileSource expands pattern into the list of utterance files
func NewPCMFileSource(pattern string) (*PCMFileSource, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, appErrors.NewIOError(appErrors.ErrCodeInvalidFormat, "Invalid audio file pattern", err)
	}
	if len(paths) == 0 {
		return nil, appErrors.NewIOError(appErrors.ErrCodeFileNotFound,
			fmt.Sprintf("No audio files match %s", pattern), nil)
	}
	sort.Strings(paths)
	return &PCMFileSource{paths: paths}, nil
}

// Exhausted reports whether every file has been replayed
func (s *PCMFileSource) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths) == 0
}

// Capture returns the next file's contents, or io.EOF once all files are used
func (s *PCMFileSource) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.paths) == 0 {
		s.mu.Unlock()
		return nil, io.EOF
	}
	path := s.paths[0]
	s.paths = s.paths[1:]
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, appErrors.NewIOError(appErrors.ErrCodeFileNotReadable, "Failed to read audio file", err).
			WithContext("path", path)
	}
	return data, nil
}

package media

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// ErrNoLevel is returned when a track cannot report an input level
var ErrNoLevel = errors.New("track does not report an input level")

// Leveler is implemented by audio tracks that expose an input level on a 0-100 scale
type Leveler interface {
	Level() float64
}

// LevelMeter samples a microphone track and averages the readings
type LevelMeter struct {
	Samples  int
	Interval time.Duration
}

// Measure returns the average level of track over the configured samples
func (m LevelMeter) Measure(ctx context.Context, track Track) (float64, error) {
	leveler, ok := track.(Leveler)
	if !ok {
		return 0, ErrNoLevel
	}

	samples := max(m.Samples, 1)
	var ticker *time.Ticker
	if m.Interval > 0 {
		ticker = time.NewTicker(m.Interval)
		defer ticker.Stop()
	}

	total := 0.0
	for i := 0; i < samples; i++ {
		if i > 0 && ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
		total += leveler.Level()
	}
	return total / float64(samples), nil
}

// PCMLevel returns the RMS level of a little-endian LINEAR16 frame on a 0-100 scale
func PCMLevel(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(frame[2*i:])))
		sum += sample * sample
	}
	rms := math.Sqrt(sum / float64(n))
	return math.Min(100, rms/math.MaxInt16*100)
}

package interview

import (
	"fmt"
	"time"
)

// Countdown is the session timer. It may run past zero; the server decides
// when the interview ends.
type Countdown struct {
	remaining time.Duration
	threshold time.Duration
	warning   time.Duration
	latched   bool
}

// NewCountdown starts a countdown of total that latches the final question
// once remaining time is within threshold. A total already inside the
// threshold latches immediately.
func NewCountdown(total, threshold, warning time.Duration) *Countdown {
	c := &Countdown{remaining: total, threshold: threshold, warning: warning}
	c.latched = c.inFinalWindow()
	return c
}

func (c *Countdown) inFinalWindow() bool {
	return c.remaining > 0 && c.remaining <= c.threshold
}

// Tick removes one second and reports whether the final-question latch
// fired on this tick
func (c *Countdown) Tick() bool {
	c.remaining -= time.Second
	if c.latched {
		return false
	}
	if c.inFinalWindow() {
		c.latched = true
		return true
	}
	return false
}

func (c *Countdown) Remaining() time.Duration { return c.remaining }

// FinalQuestion reports whether the latch has fired
func (c *Countdown) FinalQuestion() bool { return c.latched }

// Warning reports whether the display should flag low time
func (c *Countdown) Warning() bool { return c.remaining <= c.warning }

// FormatTime renders d as m:ss, with a leading minus when negative
func FormatTime(d time.Duration) string {
	secs := int64(d / time.Second)
	sign := ""
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	return fmt.Sprintf("%s%d:%02d", sign, secs/60, secs%60)
}

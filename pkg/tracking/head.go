package tracking

import (
	"math"
	"time"
)

// HeadTracker is the vertical head sub-policy: an incremental P-controller
// on the normalized Y offset with deadband, per-step rate limit, and servo
// range clamping. It runs independently of the body policy and is not
// suppressed by the completion latch.
type HeadTracker struct {
	angle   float64
	lastCmd time.Time
	init    bool
}

// NewHeadTracker returns a tracker that starts at neutral on first use.
func NewHeadTracker() *HeadTracker {
	return &HeadTracker{}
}

// Angle returns the current commanded angle in degrees.
func (t *HeadTracker) Angle(cfg *Config) float64 {
	if !t.init {
		return cfg.Head.NeutralDeg
	}
	return t.angle
}

// Update computes the next head angle for a ball at ballY in a frame of
// height frameH. Returns (angle, true) when a new command should be sent;
// false inside the deadband or the min command interval.
func (t *HeadTracker) Update(cfg *Config, ballY, frameH int, now time.Time) (float64, bool) {
	if frameH == 0 {
		return 0, false
	}
	h := cfg.Head
	if !t.init {
		t.angle = h.NeutralDeg
		t.init = true
	}
	if !t.lastCmd.IsZero() && now.Sub(t.lastCmd) < h.MinInterval {
		return 0, false
	}

	centerY := float64(frameH) / 2
	errNorm := (float64(ballY) - centerY) / centerY // positive = ball below center
	if math.Abs(errNorm) < h.Deadband {
		return 0, false
	}

	// Incremental step: ball below center tilts the head down (servo
	// convention: smaller angle = down).
	delta := -(h.Kp * errNorm)
	delta = math.Max(-h.MaxStepDeg, math.Min(h.MaxStepDeg, delta))

	t.angle = math.Max(h.MinDeg, math.Min(h.MaxDeg, t.angle+delta))
	t.lastCmd = now
	return t.angle, true
}

// Reset recenters the head state; the next Update starts from neutral.
func (t *HeadTracker) Reset() {
	*t = HeadTracker{}
}

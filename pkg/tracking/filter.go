package tracking

import (
	"math"
	"time"

	"github.com/mtdev/go-dogtrack/pkg/debug"
	"github.com/mtdev/go-dogtrack/pkg/detect"
)

// TracePoint is one filtered position with its timestamp, kept for
// fade-style overlays.
type TracePoint struct {
	X, Y float64
	T    time.Time
}

// State is a read-only snapshot of the filter, taken once per tick.
// The filtered center persists across misses (momentum) until reset.
type State struct {
	HasFix     bool
	X, Y       float64
	LastRadius int
	Missed     int
	Trace      []TracePoint
}

// Filter stabilizes raw per-frame detections: physically-implausible jumps
// are rejected, accepted positions are exponentially smoothed, and misses
// are counted for the search controller.
type Filter struct {
	hasFix     bool
	x, y       float64
	lastRadius int
	missed     int
	lastAccept time.Time
	trace      []TracePoint
}

// NewFilter returns an empty filter with no fix.
func NewFilter() *Filter {
	return &Filter{}
}

// Observe consumes one frame's detection (or nil) and reports whether it
// was accepted. Rejected and absent detections both count as misses and
// leave the filtered center untouched.
func (f *Filter) Observe(cfg *Config, ball *detect.Ball, w, h int, now time.Time) bool {
	if ball == nil {
		f.miss()
		return false
	}

	rawX, rawY := float64(ball.X), float64(ball.Y)
	if f.hasFix {
		dist := math.Hypot(rawX-f.x, rawY-f.y)
		maxJump := cfg.MaxJumpRatio * math.Min(float64(w), float64(h))
		if dist > maxJump && !f.canReacquire(cfg, ball, w, h, now) {
			debug.TrackLog("filter: jump rejected dist=%.0f max=%.0f missed=%d\n",
				dist, maxJump, f.missed+1)
			f.miss()
			return false
		}
	}

	if !f.hasFix {
		f.x, f.y = rawX, rawY
		f.hasFix = true
	} else {
		a := cfg.SmoothAlpha
		f.x = a*rawX + (1-a)*f.x
		f.y = a*rawY + (1-a)*f.y
	}
	f.lastRadius = ball.R
	f.missed = 0
	f.lastAccept = now
	f.trace = append(f.trace, TracePoint{X: f.x, Y: f.y, T: now})
	f.prune(cfg, now)
	return true
}

// canReacquire relaxes jump rejection when the far detection is more
// likely the ball than noise: the track has repeated misses, the last
// accepted sample is old, or the blob covers enough of the frame that a
// false positive this large is implausible.
func (f *Filter) canReacquire(cfg *Config, ball *detect.Ball, w, h int, now time.Time) bool {
	if f.missed >= 2 {
		return true
	}
	if cfg.ReacquireAreaRatio > 0 && ball.Area >= cfg.ReacquireAreaRatio*float64(w)*float64(h) {
		return true
	}
	return !f.lastAccept.IsZero() && now.Sub(f.lastAccept) > cfg.ReacquireAfter
}

func (f *Filter) miss() {
	f.missed++
}

func (f *Filter) prune(cfg *Config, now time.Time) {
	cutoff := now.Add(-cfg.TraceMaxAge)
	i := 0
	for i < len(f.trace) && f.trace[i].T.Before(cutoff) {
		i++
	}
	if i > 0 {
		f.trace = append(f.trace[:0], f.trace[i:]...)
	}
}

// State returns a snapshot. The trace slice is shared; callers treat it
// as read-only within the tick.
func (f *Filter) State() State {
	return State{
		HasFix:     f.hasFix,
		X:          f.x,
		Y:          f.y,
		LastRadius: f.lastRadius,
		Missed:     f.missed,
		Trace:      f.trace,
	}
}

// Reset drops the fix, trace, and miss count.
func (f *Filter) Reset() {
	*f = Filter{}
}

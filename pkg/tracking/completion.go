package tracking

import (
	"time"

	"github.com/mtdev/go-dogtrack/pkg/debug"
)

// CompletionPhase labels the stage of the arrival sequence.
type CompletionPhase string

const (
	CompletionNone  CompletionPhase = "none"
	CompletionRelax CompletionPhase = "relax"
	CompletionOff   CompletionPhase = "off"
)

// Sequencer runs the one-shot arrival sequence: audible and visual cue,
// full stop, relax posture, then servo power-off after a delay. The latch
// only clears through an explicit Reset; re-reaching the ball while
// latched does nothing.
type Sequencer struct {
	phase     CompletionPhase
	triggered time.Time
	lastStop  time.Time
}

// NewSequencer returns an unlatched sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{phase: CompletionNone}
}

// Latched reports whether the sequence has fired.
func (q *Sequencer) Latched() bool {
	return q.phase != CompletionNone
}

// Phase reports the current completion phase.
func (q *Sequencer) Phase() CompletionPhase {
	return q.phase
}

// Trigger fires the sequence once: double beep, double green flash, stop,
// relax. Subsequent calls are ignored until Reset.
func (q *Sequencer) Trigger(act Actuator, now time.Time) {
	if q.Latched() {
		return
	}
	debug.TrackLog("completion: triggered\n")
	act.Beep(2, 120*time.Millisecond, 120*time.Millisecond)
	act.FlashLED(2, 180*time.Millisecond, 180*time.Millisecond, 0, 255, 0)
	act.Move(Stop, MinSpeed)
	act.Relax()
	q.phase = CompletionRelax
	q.triggered = now
	q.lastStop = now
}

// Update advances the sequence on the caller's clock. While relaxed it
// re-sends Stop periodically in case a queued motion command landed after
// the trigger; once powered off it sends nothing.
func (q *Sequencer) Update(cfg *Config, act Actuator, now time.Time) {
	switch q.phase {
	case CompletionRelax:
		if now.Sub(q.triggered) >= cfg.OffDelay {
			debug.TrackLog("completion: servo power off\n")
			act.PowerOff()
			q.phase = CompletionOff
			return
		}
		if now.Sub(q.lastStop) >= cfg.StopRepeatInterval {
			act.Move(Stop, MinSpeed)
			q.lastStop = now
		}
	}
}

// Reset clears the latch so a new approach can trigger again.
func (q *Sequencer) Reset() {
	*q = Sequencer{phase: CompletionNone}
}

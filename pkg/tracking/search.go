package tracking

import (
	"time"

	"github.com/mtdev/go-dogtrack/pkg/debug"
)

// SearchPhase labels what the search controller is doing this tick.
type SearchPhase string

const (
	SearchIdle     SearchPhase = "idle"
	SearchScanLeft SearchPhase = "scan-left"
	SearchForward  SearchPhase = "forward"
	SearchEscape   SearchPhase = "escape"
)

// SearchController drives the lost-ball behavior: alternate a left scan
// with a short forward push, back off an obstacle detected by the distance
// sensor, and freeze entirely when telemetry goes stale. All timing comes
// from the caller's clock; the controller never sleeps.
type SearchController struct {
	phase      SearchPhase
	phaseStart time.Time
	lastCmd    time.Time
	lastName   Command
	sentStop   bool
}

// NewSearchController returns a controller in the idle phase.
func NewSearchController() *SearchController {
	return &SearchController{phase: SearchIdle}
}

// Phase reports the active search phase.
func (s *SearchController) Phase() SearchPhase {
	return s.phase
}

// LastCommand returns the most recently issued search command.
func (s *SearchController) LastCommand() Command {
	return s.lastName
}

// Update runs one search tick. tele is the latest distance sample; stale
// or missing telemetry halts motion rather than risking a blind drive.
func (s *SearchController) Update(cfg *Config, act MotionController, tele Sample, now time.Time) {
	if !tele.Fresh(now, cfg.TelemetryMaxAge) {
		// Blind robot: stop once and wait for telemetry to recover.
		if !s.sentStop || s.phase != SearchIdle {
			act.Move(Stop, cfg.ScanSpeed)
			s.sentStop = true
			s.lastCmd = now
			s.lastName = Stop
		}
		s.phase = SearchIdle
		return
	}

	// Obstacle guard runs before the pattern: too close means turn away
	// until clear, with hysteresis so a noisy reading near the threshold
	// does not flip the state.
	if cfg.ObstacleAvoidEnabled && tele.DistanceCm > 0 {
		switch {
		case s.phase == SearchEscape:
			if tele.DistanceCm > cfg.ObstacleClearCm {
				// Clear again: restart the pattern from a fresh scan.
				s.enterPhase(SearchScanLeft, now)
			}
		case tele.DistanceCm <= cfg.ObstacleNearCm:
			s.enterPhase(SearchEscape, now)
		}
	}

	switch s.phase {
	case SearchIdle:
		s.enterPhase(SearchScanLeft, now)
	case SearchEscape:
	case SearchScanLeft:
		if cfg.SearchForwardEnabled && now.Sub(s.phaseStart) >= cfg.ScanDuration {
			s.enterPhase(SearchForward, now)
		}
	case SearchForward:
		if now.Sub(s.phaseStart) >= cfg.ForwardDuration {
			s.enterPhase(SearchScanLeft, now)
		}
	}

	var cmd Command
	speed := cfg.ScanSpeed
	switch s.phase {
	case SearchScanLeft, SearchEscape:
		cmd = TurnLeft
	case SearchForward:
		cmd = Forward
		speed = cfg.SearchForwardSpeed
	default:
		return
	}

	// Phase switches bypass the interval gate so the robot reacts at the
	// boundary, not one interval later.
	canSend := s.lastName != cmd || s.lastCmd.IsZero() || now.Sub(s.lastCmd) >= cfg.CommandInterval
	if canSend {
		debug.TrackLog("search: phase=%s cmd=%s dist=%.0fcm\n", s.phase, cmd, tele.DistanceCm)
		act.Move(cmd, speed)
		s.lastCmd = now
		s.lastName = cmd
		s.sentStop = false
	}
}

func (s *SearchController) enterPhase(p SearchPhase, now time.Time) {
	if s.phase == p {
		return
	}
	s.phase = p
	s.phaseStart = now
}

// Reset returns the controller to idle; the next Update starts a new scan.
func (s *SearchController) Reset() {
	*s = SearchController{phase: SearchIdle}
}

package tracking

import (
	"testing"
	"time"
)

func freshSample(now time.Time, cm float64) Sample {
	return Sample{DistanceCm: cm, Timestamp: now}
}

func TestSearchScanThenForwardPattern(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	s := NewSearchController()
	now := time.Now()

	s.Update(&cfg, act, freshSample(now, 100), now)
	if s.Phase() != SearchScanLeft {
		t.Fatalf("phase = %s, want %s", s.Phase(), SearchScanLeft)
	}
	if last, _ := act.lastMove(); last.cmd != TurnLeft || last.speed != cfg.ScanSpeed {
		t.Fatalf("scan should TurnLeft at %d, got %+v", cfg.ScanSpeed, last)
	}

	// After ScanDuration the pattern pushes forward.
	now = now.Add(cfg.ScanDuration + time.Millisecond)
	s.Update(&cfg, act, freshSample(now, 100), now)
	if s.Phase() != SearchForward {
		t.Fatalf("phase = %s, want %s", s.Phase(), SearchForward)
	}
	if last, _ := act.lastMove(); last.cmd != Forward || last.speed != cfg.SearchForwardSpeed {
		t.Fatalf("forward push should use %d, got %+v", cfg.SearchForwardSpeed, last)
	}

	// And back to scanning after ForwardDuration.
	now = now.Add(cfg.ForwardDuration + time.Millisecond)
	s.Update(&cfg, act, freshSample(now, 100), now)
	if s.Phase() != SearchScanLeft {
		t.Fatalf("phase = %s, want %s", s.Phase(), SearchScanLeft)
	}
}

func TestSearchPhaseSwitchBypassesRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	s := NewSearchController()
	now := time.Now()

	s.Update(&cfg, act, freshSample(now, 100), now)
	// Tick just after the phase boundary, well inside CommandInterval.
	now = now.Add(cfg.ScanDuration + time.Millisecond)
	s.Update(&cfg, act, freshSample(now, 100), now)

	if last, _ := act.lastMove(); last.cmd != Forward {
		t.Fatalf("phase switch should send immediately, got %s", last.cmd)
	}
}

func TestSearchScanOnlyMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SearchForwardEnabled = false
	act := &mockActuator{}
	s := NewSearchController()
	now := time.Now()

	for i := 0; i < 10; i++ {
		s.Update(&cfg, act, freshSample(now, 100), now)
		now = now.Add(cfg.ScanDuration)
	}
	if s.Phase() != SearchScanLeft {
		t.Fatalf("phase = %s, want scan-only", s.Phase())
	}
	for _, c := range act.moves() {
		if c.cmd == Forward {
			t.Fatal("forward issued in scan-only mode")
		}
	}
}

func TestSearchStaleTelemetryStops(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	s := NewSearchController()
	now := time.Now()

	stale := Sample{DistanceCm: 100, Timestamp: now.Add(-cfg.TelemetryMaxAge - time.Second)}
	s.Update(&cfg, act, stale, now)

	if s.Phase() != SearchIdle {
		t.Fatalf("phase = %s, want idle on stale telemetry", s.Phase())
	}
	last, ok := act.lastMove()
	if !ok || last.cmd != Stop {
		t.Fatalf("stale telemetry should stop, got %v", act.moves())
	}

	// Further stale ticks stay quiet.
	n := len(act.moves())
	for i := 0; i < 5; i++ {
		now = now.Add(100 * time.Millisecond)
		s.Update(&cfg, act, stale, now)
	}
	if len(act.moves()) != n {
		t.Fatalf("idle search should not repeat commands, got %v", act.moves())
	}
}

func TestSearchMissingTelemetryStops(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	s := NewSearchController()

	s.Update(&cfg, act, Sample{}, time.Now())
	if s.Phase() != SearchIdle {
		t.Fatalf("phase = %s, want idle with no telemetry at all", s.Phase())
	}
}

func TestSearchObstacleEscapeHysteresis(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	s := NewSearchController()
	now := time.Now()

	s.Update(&cfg, act, freshSample(now, 100), now)

	// Wall at 5cm: escape turn.
	now = now.Add(cfg.CommandInterval)
	s.Update(&cfg, act, freshSample(now, 5), now)
	if s.Phase() != SearchEscape {
		t.Fatalf("phase = %s, want escape", s.Phase())
	}
	if last, _ := act.lastMove(); last.cmd != TurnLeft {
		t.Fatalf("escape should TurnLeft, got %s", last.cmd)
	}

	// 20cm is past near but not past clear: keep escaping.
	now = now.Add(cfg.CommandInterval)
	s.Update(&cfg, act, freshSample(now, 20), now)
	if s.Phase() != SearchEscape {
		t.Fatalf("phase = %s, escape should hold until clear", s.Phase())
	}

	// 35cm is clear: restart the pattern from a fresh scan.
	now = now.Add(cfg.CommandInterval)
	s.Update(&cfg, act, freshSample(now, 35), now)
	if s.Phase() != SearchScanLeft {
		t.Fatalf("phase = %s, want scan after clearing", s.Phase())
	}
}

func TestSearchObstacleGuardDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ObstacleAvoidEnabled = false
	act := &mockActuator{}
	s := NewSearchController()
	now := time.Now()

	s.Update(&cfg, act, freshSample(now, 5), now)
	if s.Phase() == SearchEscape {
		t.Fatal("escape entered with the obstacle guard disabled")
	}
}

package tracking

import (
	"testing"
	"time"
)

func lockedAt(x, y float64, r int) State {
	return State{HasFix: true, X: x, Y: y, LastRadius: r}
}

func TestBodyTurnsBeforeApproaching(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()

	tests := []struct {
		name string
		x    float64
		want Command
	}{
		{"ball far right turns right", 600, TurnRight},
		{"ball far left turns left", 40, TurnLeft},
		{"ball centered walks forward", 320, Forward},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := &mockActuator{}
			p := NewBodyPolicy()
			done := p.Update(&cfg, act, lockedAt(tt.x, 240, 30), 640, 480, now)
			if done {
				t.Fatal("small distant ball should not be close enough")
			}
			last, ok := act.lastMove()
			if !ok {
				t.Fatal("expected a motion command")
			}
			if last.cmd != tt.want {
				t.Fatalf("cmd = %s, want %s", last.cmd, tt.want)
			}
		})
	}
}

func TestBodyNeverWalksForwardOffCenter(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	p := NewBodyPolicy()
	now := time.Now()

	// Ball stays far off-center for many ticks.
	for i := 0; i < 20; i++ {
		now = now.Add(cfg.CommandInterval)
		p.Update(&cfg, act, lockedAt(620, 240, 30), 640, 480, now)
	}
	for _, c := range act.moves() {
		if c.cmd == Forward {
			t.Fatal("Forward issued while ball is outside the deadzone")
		}
	}
}

func TestBodyCloseEnough(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		st   State
		want bool
	}{
		{"large diameter", lockedAt(320, 240, 110), true},
		{"bottom edge reached", lockedAt(320, 470, 20), true},
		{"small and distant", lockedAt(320, 240, 30), false},
		{"no fix", State{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CloseEnough(&cfg, tt.st, 640, 480); got != tt.want {
				t.Fatalf("CloseEnough = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBodyTurnsEvenWhenClose(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	p := NewBodyPolicy()

	// Large but far off-center: centering wins over the size test.
	done := p.Update(&cfg, act, lockedAt(600, 240, 110), 640, 480, time.Now())
	if done {
		t.Fatal("off-center ball must not complete")
	}
	last, ok := act.lastMove()
	if !ok || last.cmd != TurnRight {
		t.Fatalf("expected turn toward ball, got %v", act.moves())
	}
}

func TestBodyCloseEnoughIssuesNothing(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	p := NewBodyPolicy()

	done := p.Update(&cfg, act, lockedAt(320, 240, 110), 640, 480, time.Now())
	if !done {
		t.Fatal("expected close-enough")
	}
	if len(act.all()) != 0 {
		t.Fatalf("close-enough tick must not actuate, got %v", act.all())
	}
}

func TestBodyHysteresisHoldsTurnInsideDeadzone(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	p := NewBodyPolicy()
	now := time.Now()

	// 640px frame: dead=115.2, margin=28.8, exit=86.4.
	p.Update(&cfg, act, lockedAt(600, 240, 30), 640, 480, now)
	if last, _ := act.lastMove(); last.cmd != TurnRight {
		t.Fatalf("cmd = %s, want %s", last.cmd, TurnRight)
	}

	// Offset 100 is inside the deadzone but above the exit threshold:
	// the turn holds instead of flapping.
	now = now.Add(cfg.CommandInterval)
	p.Update(&cfg, act, lockedAt(420, 240, 30), 640, 480, now)
	if last, _ := act.lastMove(); last.cmd != TurnRight {
		t.Fatalf("turn should hold above exit threshold, got %s", last.cmd)
	}

	// Offset 50 is below the exit threshold: immediate stop.
	act.reset()
	now = now.Add(time.Millisecond)
	p.Update(&cfg, act, lockedAt(370, 240, 30), 640, 480, now)
	last, ok := act.lastMove()
	if !ok || last.cmd != Stop {
		t.Fatalf("expected immediate Stop on re-centering, got %v", act.moves())
	}
}

func TestBodyRateLimitsRepeatCommands(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	p := NewBodyPolicy()
	now := time.Now()

	p.Update(&cfg, act, lockedAt(600, 240, 30), 640, 480, now)
	p.Update(&cfg, act, lockedAt(600, 240, 30), 640, 480, now.Add(50*time.Millisecond))
	if got := len(act.moves()); got != 1 {
		t.Fatalf("moves = %d, want 1 within CommandInterval", got)
	}

	p.Update(&cfg, act, lockedAt(600, 240, 30), 640, 480, now.Add(cfg.CommandInterval+time.Millisecond))
	if got := len(act.moves()); got != 2 {
		t.Fatalf("moves = %d, want 2 after CommandInterval", got)
	}
}

func TestBodyAxisChangeSendsImmediately(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	p := NewBodyPolicy()
	now := time.Now()

	p.Update(&cfg, act, lockedAt(600, 240, 30), 640, 480, now)
	// Centered next frame: Stop fires without waiting for the interval,
	// and the following frame starts the approach.
	p.Update(&cfg, act, lockedAt(320, 240, 30), 640, 480, now.Add(33*time.Millisecond))
	p.Update(&cfg, act, lockedAt(320, 240, 30), 640, 480, now.Add(66*time.Millisecond))

	mv := act.moves()
	if len(mv) != 3 {
		t.Fatalf("moves = %v, want turn/stop/forward", mv)
	}
	if mv[0].cmd != TurnRight || mv[1].cmd != Stop || mv[2].cmd != Forward {
		t.Fatalf("sequence = %s,%s,%s", mv[0].cmd, mv[1].cmd, mv[2].cmd)
	}
}

func TestBodyProportionalSpeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BodyKp = 1.0
	now := time.Now()

	// Near the frame edge the speed saturates; near the deadzone it idles.
	act := &mockActuator{}
	p := NewBodyPolicy()
	p.Update(&cfg, act, lockedAt(639, 240, 30), 640, 480, now)
	if last, _ := act.lastMove(); last.speed != MaxSpeed {
		t.Fatalf("edge speed = %d, want %d", last.speed, MaxSpeed)
	}

	act = &mockActuator{}
	p = NewBodyPolicy()
	p.Update(&cfg, act, lockedAt(460, 240, 30), 640, 480, now)
	if last, _ := act.lastMove(); last.speed > 4 {
		t.Fatalf("near-deadzone speed = %d, want small", last.speed)
	}
}

func TestBodyFixedSpeedWithoutGain(t *testing.T) {
	cfg := DefaultConfig() // BodyKp == 0
	act := &mockActuator{}
	p := NewBodyPolicy()

	p.Update(&cfg, act, lockedAt(600, 240, 30), 640, 480, time.Now())
	if last, _ := act.lastMove(); last.speed != cfg.MoveSpeed {
		t.Fatalf("speed = %d, want fixed %d", last.speed, cfg.MoveSpeed)
	}
}

package tracking

import (
	"testing"
	"time"
)

func TestCompletionTriggerSequence(t *testing.T) {
	act := &mockActuator{}
	q := NewSequencer()
	now := time.Now()

	q.Trigger(act, now)
	if !q.Latched() {
		t.Fatal("trigger should latch")
	}
	if q.Phase() != CompletionRelax {
		t.Fatalf("phase = %s, want relax", q.Phase())
	}

	calls := act.all()
	want := []string{"beep", "flash", "move", "relax"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i, name := range want {
		if calls[i].name != name {
			t.Fatalf("call %d = %s, want %s", i, calls[i].name, name)
		}
	}
	if calls[0].speed != 2 || calls[1].speed != 2 {
		t.Fatal("cue should beep and flash twice")
	}
	if calls[2].cmd != Stop {
		t.Fatalf("motion call = %s, want Stop", calls[2].cmd)
	}
}

func TestCompletionIsOneShot(t *testing.T) {
	act := &mockActuator{}
	q := NewSequencer()
	now := time.Now()

	q.Trigger(act, now)
	n := len(act.all())
	q.Trigger(act, now.Add(time.Second))
	if len(act.all()) != n {
		t.Fatal("second trigger should be a no-op while latched")
	}
}

func TestCompletionDefensiveStops(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	q := NewSequencer()
	now := time.Now()

	q.Trigger(act, now)
	act.reset()

	// Inside StopRepeatInterval: quiet.
	q.Update(&cfg, act, now.Add(cfg.StopRepeatInterval/2))
	if len(act.moves()) != 0 {
		t.Fatal("no stop expected inside the repeat interval")
	}

	// Past it: one repeated Stop.
	q.Update(&cfg, act, now.Add(cfg.StopRepeatInterval+time.Millisecond))
	last, ok := act.lastMove()
	if !ok || last.cmd != Stop {
		t.Fatalf("expected repeated Stop, got %v", act.moves())
	}
}

func TestCompletionPowersOffAfterDelay(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	q := NewSequencer()
	now := time.Now()

	q.Trigger(act, now)
	q.Update(&cfg, act, now.Add(cfg.OffDelay+time.Millisecond))
	if q.Phase() != CompletionOff {
		t.Fatalf("phase = %s, want off", q.Phase())
	}
	if act.count("off") != 1 {
		t.Fatal("expected exactly one PowerOff")
	}

	// Off is terminal: nothing more is sent, ever.
	act.reset()
	for i := 1; i <= 10; i++ {
		q.Update(&cfg, act, now.Add(cfg.OffDelay+time.Duration(i)*time.Second))
	}
	if len(act.all()) != 0 {
		t.Fatalf("off phase should be silent, got %v", act.all())
	}
}

func TestCompletionLatchClearsOnlyOnReset(t *testing.T) {
	cfg := DefaultConfig()
	act := &mockActuator{}
	q := NewSequencer()
	now := time.Now()

	q.Trigger(act, now)
	q.Update(&cfg, act, now.Add(time.Hour))
	if !q.Latched() {
		t.Fatal("latch must survive time alone")
	}

	q.Reset()
	if q.Latched() {
		t.Fatal("reset should clear the latch")
	}
	q.Trigger(act, now.Add(2*time.Hour))
	if !q.Latched() {
		t.Fatal("a fresh trigger should fire after reset")
	}
}

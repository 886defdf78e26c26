package tracking

import (
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/mtdev/go-dogtrack/pkg/detect"
)

// stubDetector serves whatever ball the test plants and counts calls.
type stubDetector struct {
	ball  *detect.Ball
	calls int
}

func (s *stubDetector) Detect(frame gocv.Mat) (*detect.Ball, error) {
	s.calls++
	return s.ball, nil
}

func testFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return frame
}

func TestSessionDisabledTickDoesNotActuate(t *testing.T) {
	det := &stubDetector{ball: ballAt(320, 240, 30)}
	act := &mockActuator{}
	s := NewSession(det, act, DefaultConfig())
	frame := testFrame(t)
	now := time.Now()

	s.SetEnabled(false)
	act.reset()

	for i := 0; i < 5; i++ {
		now = now.Add(33 * time.Millisecond)
		rep := s.Tick(frame, freshSample(now, 100), now)
		if rep.Enabled {
			t.Fatal("report should show disabled")
		}
	}
	if len(act.all()) != 0 {
		t.Fatalf("disabled ticks must not actuate, got %v", act.all())
	}
	if det.calls != 0 {
		t.Fatalf("disabled ticks must not run the detector, got %d calls", det.calls)
	}
}

func TestSessionDisableStopsAndResets(t *testing.T) {
	det := &stubDetector{ball: ballAt(600, 240, 30)}
	act := &mockActuator{}
	s := NewSession(det, act, DefaultConfig())
	frame := testFrame(t)
	now := time.Now()

	s.Tick(frame, freshSample(now, 100), now)
	act.reset()

	s.SetEnabled(false)
	last, ok := act.lastMove()
	if !ok || last.cmd != Stop {
		t.Fatalf("disable should stop the robot, got %v", act.moves())
	}

	s.SetEnabled(true)
	empty := gocv.NewMat()
	defer empty.Close()
	rep := s.Tick(empty, Sample{}, now.Add(time.Second))
	if rep.HasFix {
		t.Fatal("re-enable should start with a cleared filter")
	}
}

func TestSessionHeadFollowsAcceptedFix(t *testing.T) {
	det := &stubDetector{ball: ballAt(320, 470, 30)}
	act := &mockActuator{}
	s := NewSession(det, act, DefaultConfig())
	frame := testFrame(t)

	s.Tick(frame, freshSample(time.Now(), 100), time.Now())
	if act.count("head") != 1 {
		t.Fatalf("head calls = %d, want 1", act.count("head"))
	}
}

func TestSessionMissEscalation(t *testing.T) {
	cfg := DefaultConfig()
	det := &stubDetector{ball: ballAt(320, 240, 30)}
	act := &mockActuator{}
	s := NewSession(det, act, cfg)
	frame := testFrame(t)
	now := time.Now()

	s.Tick(frame, freshSample(now, 100), now)
	act.reset()

	// First miss: exactly one grace Stop.
	det.ball = nil
	now = now.Add(33 * time.Millisecond)
	s.Tick(frame, freshSample(now, 100), now)
	mv := act.moves()
	if len(mv) != 1 || mv[0].cmd != Stop {
		t.Fatalf("first miss should send one Stop, got %v", mv)
	}

	// Second miss: the search takes over with a scan.
	now = now.Add(33 * time.Millisecond)
	rep := s.Tick(frame, freshSample(now, 100), now)
	if rep.Search != SearchScanLeft {
		t.Fatalf("search = %s, want %s", rep.Search, SearchScanLeft)
	}
	if last, _ := act.lastMove(); last.cmd != TurnLeft {
		t.Fatalf("expected scan TurnLeft, got %s", last.cmd)
	}
}

func TestSessionCompletionFiresOnceAndHolds(t *testing.T) {
	det := &stubDetector{ball: ballAt(320, 240, 110)}
	act := &mockActuator{}
	s := NewSession(det, act, DefaultConfig())
	frame := testFrame(t)
	now := time.Now()

	rep := s.Tick(frame, freshSample(now, 100), now)
	if rep.Completion == CompletionNone {
		t.Fatal("large centered ball should trigger completion")
	}
	if act.count("beep") != 1 || act.count("flash") != 1 || act.count("relax") != 1 {
		t.Fatalf("cue calls = %v", act.all())
	}

	// Latched ticks never re-cue or move the body, but the head still
	// follows the ball.
	for i := 0; i < 5; i++ {
		now = now.Add(200 * time.Millisecond)
		s.Tick(frame, freshSample(now, 100), now)
	}
	if act.count("beep") != 1 {
		t.Fatal("completion must be one-shot")
	}
	for _, c := range act.moves() {
		if c.cmd != Stop {
			t.Fatalf("only defensive Stops allowed while latched, got %s", c.cmd)
		}
	}

	// An explicit reset re-arms the trigger.
	s.ResetCompletion()
	now = now.Add(200 * time.Millisecond)
	rep = s.Tick(frame, freshSample(now, 100), now)
	if rep.Completion == CompletionNone {
		t.Fatal("still-close ball should retrigger after reset")
	}
	if act.count("beep") != 2 {
		t.Fatalf("beeps = %d, want 2 after retrigger", act.count("beep"))
	}
}

func TestSessionPowersOffAfterDelay(t *testing.T) {
	cfg := DefaultConfig()
	det := &stubDetector{ball: ballAt(320, 240, 110)}
	act := &mockActuator{}
	s := NewSession(det, act, cfg)
	frame := testFrame(t)
	now := time.Now()

	s.Tick(frame, freshSample(now, 100), now)
	now = now.Add(cfg.OffDelay + time.Millisecond)
	rep := s.Tick(frame, freshSample(now, 100), now)
	if rep.Completion != CompletionOff {
		t.Fatalf("completion = %s, want off", rep.Completion)
	}
	if act.count("off") != 1 {
		t.Fatal("expected one PowerOff")
	}
}

func TestSessionSetConfigClamps(t *testing.T) {
	det := &stubDetector{}
	act := &mockActuator{}
	s := NewSession(det, act, DefaultConfig())

	cfg := s.Config()
	cfg.MoveSpeed = 99
	cfg.SmoothAlpha = 7
	s.SetConfig(cfg)

	got := s.Config()
	if got.MoveSpeed != MaxSpeed {
		t.Fatalf("MoveSpeed = %d, want clamped %d", got.MoveSpeed, MaxSpeed)
	}
	if got.SmoothAlpha != 1.0 {
		t.Fatalf("SmoothAlpha = %v, want clamped 1.0", got.SmoothAlpha)
	}
}

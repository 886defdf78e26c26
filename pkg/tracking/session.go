package tracking

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/mtdev/go-dogtrack/internal/log"
	"github.com/mtdev/go-dogtrack/pkg/detect"
)

// TickReport is the per-tick state snapshot published to the web layer.
type TickReport struct {
	SessionID  string          `json:"session_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Enabled    bool            `json:"enabled"`
	HasFix     bool            `json:"has_fix"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Radius     int             `json:"radius"`
	Missed     int             `json:"missed"`
	HeadAngle  float64         `json:"head_angle"`
	BodyAxis   string          `json:"body_axis"`
	Search     SearchPhase     `json:"search"`
	Completion CompletionPhase `json:"completion"`
	DistanceCm float64         `json:"distance_cm"`
	HUD        []string        `json:"hud"`
}

// Session is the per-run tracking loop: one Tick per camera frame, in a
// fixed order (detect, filter, head, then exactly one of completion, body,
// or search). All timing is driven by the caller's clock; the session
// itself never sleeps and holds no goroutines.
//
// Tick must be called from a single goroutine. SetEnabled, SetConfig, and
// Report are safe to call concurrently from the web layer.
type Session struct {
	id  string
	det detect.Detector
	act Actuator

	cfg     atomic.Pointer[Config]
	enabled atomic.Bool

	filter     *Filter
	head       *HeadTracker
	body       *BodyPolicy
	search     *SearchController
	completion *Sequencer

	missedStopSent bool

	mu     sync.Mutex
	report TickReport
}

// NewSession builds an enabled session around a detector and an actuator.
func NewSession(det detect.Detector, act Actuator, cfg Config) *Session {
	cfg.Clamp()
	s := &Session{
		id:         uuid.NewString(),
		det:        det,
		act:        act,
		filter:     NewFilter(),
		head:       NewHeadTracker(),
		body:       NewBodyPolicy(),
		search:     NewSearchController(),
		completion: NewSequencer(),
	}
	s.cfg.Store(&cfg)
	s.enabled.Store(true)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Config returns the current configuration snapshot.
func (s *Session) Config() Config {
	return *s.cfg.Load()
}

// SetConfig clamps and atomically publishes a new configuration; the next
// Tick sees it in full.
func (s *Session) SetConfig(cfg Config) {
	cfg.Clamp()
	s.cfg.Store(&cfg)
}

// Enabled reports whether ticks actuate the robot.
func (s *Session) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled toggles actuation. Disabling stops the robot once and resets
// the filter, policies, and (configurably) the completion latch, so a
// re-enable starts a fresh acquisition.
func (s *Session) SetEnabled(on bool) {
	was := s.enabled.Swap(on)
	if was == on {
		return
	}
	if !on {
		s.act.Move(Stop, s.cfg.Load().MoveSpeed)
		s.filter.Reset()
		s.head.Reset()
		s.body.Reset()
		s.search.Reset()
		if s.cfg.Load().ResetCompletionOnDisable {
			s.completion.Reset()
		}
		s.missedStopSent = false
	}
	log.Info("tracking session toggled", "session", s.id, "enabled", on)
}

// ResetCompletion clears the arrival latch without touching the rest of
// the session, so the run can continue after the ball is moved.
func (s *Session) ResetCompletion() {
	s.completion.Reset()
}

// Tick processes one frame against the latest telemetry sample. The frame
// is only read; ownership stays with the caller.
func (s *Session) Tick(frame gocv.Mat, tele Sample, now time.Time) TickReport {
	cfg := s.cfg.Load()
	w, h := frame.Cols(), frame.Rows()

	// A disabled session fully no-ops: no detection, no actuation.
	if !s.enabled.Load() {
		return s.publish(cfg, State{}, tele, now)
	}

	var ball *detect.Ball
	if !frame.Empty() {
		var err error
		ball, err = s.det.Detect(frame)
		if err != nil {
			log.Warn("detector error", "session", s.id, "error", err)
			ball = nil
		}
	}

	accepted := s.filter.Observe(cfg, ball, w, h, now)
	st := s.filter.State()

	// Head tracking follows every accepted fix, including while the
	// completion latch holds (matches the robot's original behavior).
	if accepted {
		if angle, ok := s.head.Update(cfg, int(st.Y), h, now); ok {
			s.act.SetHeadAngle(angle)
		}
	}

	switch {
	case s.completion.Latched():
		s.completion.Update(cfg, s.act, now)
	case accepted:
		s.missedStopSent = false
		if s.body.Update(cfg, s.act, st, w, h, now) {
			s.completion.Trigger(s.act, now)
		}
	case st.Missed == 1:
		// Single grace stop before the search kicks in.
		if !s.missedStopSent {
			s.act.Move(Stop, cfg.MoveSpeed)
			s.missedStopSent = true
		}
	case st.Missed >= 2:
		s.search.Update(cfg, s.act, tele, now)
	}

	return s.publish(cfg, st, tele, now)
}

// Trace returns the filter's recent position history for overlays. Only
// valid from the tick goroutine.
func (s *Session) Trace() []TracePoint {
	return s.filter.State().Trace
}

// Report returns the most recent tick snapshot.
func (s *Session) Report() TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *Session) publish(cfg *Config, st State, tele Sample, now time.Time) TickReport {
	r := TickReport{
		SessionID:  s.id,
		Timestamp:  now,
		Enabled:    s.enabled.Load(),
		HasFix:     st.HasFix,
		X:          st.X,
		Y:          st.Y,
		Radius:     st.LastRadius,
		Missed:     st.Missed,
		HeadAngle:  s.head.Angle(cfg),
		BodyAxis:   s.body.AxisName(),
		Search:     s.search.Phase(),
		Completion: s.completion.Phase(),
		DistanceCm: tele.DistanceCm,
	}
	r.HUD = hudLines(r)

	s.mu.Lock()
	s.report = r
	s.mu.Unlock()
	return r
}

func hudLines(r TickReport) []string {
	lines := make([]string, 0, 4)
	if r.HasFix {
		lines = append(lines, fmt.Sprintf("ball (%.0f,%.0f) r=%d missed=%d", r.X, r.Y, r.Radius, r.Missed))
	} else {
		lines = append(lines, fmt.Sprintf("no fix missed=%d", r.Missed))
	}
	lines = append(lines, fmt.Sprintf("head %.0f axis=%s", r.HeadAngle, r.BodyAxis))
	if r.Completion != CompletionNone {
		lines = append(lines, fmt.Sprintf("done: %s", r.Completion))
	} else if r.Missed >= 2 {
		lines = append(lines, fmt.Sprintf("search: %s dist=%.0fcm", r.Search, r.DistanceCm))
	}
	if !r.Enabled {
		lines = append(lines, "tracking disabled")
	}
	return lines
}

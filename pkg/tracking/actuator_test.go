package tracking

import (
	"sync"
	"time"
)

// mockActuator records every call for assertion.
type actCall struct {
	name  string
	cmd   Command
	speed int
	angle float64
}

type mockActuator struct {
	mu    sync.Mutex
	calls []actCall
}

func (m *mockActuator) record(c actCall) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

func (m *mockActuator) Move(cmd Command, speed int) error {
	m.record(actCall{name: "move", cmd: cmd, speed: speed})
	return nil
}

func (m *mockActuator) Relax() error {
	m.record(actCall{name: "relax"})
	return nil
}

func (m *mockActuator) PowerOff() error {
	m.record(actCall{name: "off"})
	return nil
}

func (m *mockActuator) SetHeadAngle(deg float64) error {
	m.record(actCall{name: "head", angle: deg})
	return nil
}

func (m *mockActuator) Beep(count int, on, off time.Duration) error {
	m.record(actCall{name: "beep", speed: count})
	return nil
}

func (m *mockActuator) FlashLED(count int, on, off time.Duration, r, g, b uint8) error {
	m.record(actCall{name: "flash", speed: count})
	return nil
}

func (m *mockActuator) all() []actCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]actCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockActuator) count(name string) int {
	n := 0
	for _, c := range m.all() {
		if c.name == name {
			n++
		}
	}
	return n
}

func (m *mockActuator) moves() []actCall {
	var out []actCall
	for _, c := range m.all() {
		if c.name == "move" {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockActuator) lastMove() (actCall, bool) {
	mv := m.moves()
	if len(mv) == 0 {
		return actCall{}, false
	}
	return mv[len(mv)-1], true
}

func (m *mockActuator) reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

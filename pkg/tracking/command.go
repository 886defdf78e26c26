// Package tracking turns per-frame ball detections into discrete robot
// commands: a temporal filter for stable positions, head and body tracking
// policies, a lost-ball search with obstacle avoidance, and a one-shot
// completion sequence. The whole package is driven by a single externally
// clocked Tick; it never sleeps, blocks, or reads the wall clock itself.
package tracking

import "time"

// Command is one discrete actuator token.
type Command string

const (
	TurnLeft  Command = "Turn-L"
	TurnRight Command = "Turn-R"
	Forward   Command = "Forward"
	Backward  Command = "Backward"
	Stop      Command = "Stop"
	Relax     Command = "Relax"
	Off       Command = "Off"
)

// Speed bounds understood by the dog firmware.
const (
	MinSpeed = 2
	MaxSpeed = 10
)

// ClampSpeed forces a speed into the firmware's accepted range.
func ClampSpeed(speed int) int {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// MotionController drives the robot body. Implementations must not block
// the caller; the tick loop runs at frame rate.
type MotionController interface {
	// Move issues a motion token with a speed in [MinSpeed, MaxSpeed].
	// Stop is sent through Move as well; Relax and Off are not.
	Move(cmd Command, speed int) error
	// Relax releases the gait into a resting pose.
	Relax() error
	// PowerOff disables all servo PWM output.
	PowerOff() error
}

// HeadController points the camera head.
type HeadController interface {
	SetHeadAngle(deg float64) error
}

// SignalController produces audible/visible cues. Implementations run the
// timed patterns on their own; calls return immediately.
type SignalController interface {
	Beep(count int, on, off time.Duration) error
	FlashLED(count int, on, off time.Duration, r, g, b uint8) error
}

// Actuator is the full command surface the session drives.
type Actuator interface {
	MotionController
	HeadController
	SignalController
}

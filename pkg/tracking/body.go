package tracking

import (
	"math"
	"time"

	"github.com/mtdev/go-dogtrack/pkg/debug"
)

type bodyAxis int

const (
	axisNone bodyAxis = iota
	axisTurn
	axisApproach
)

// BodyPolicy decides body motion while the target is locked: turn until
// the ball is X-centered, then approach until it is close enough. Axis
// changes use enter/exit hysteresis so the robot does not chatter at the
// deadzone boundary, and commands are rate limited to CommandInterval
// (axis changes send immediately).
type BodyPolicy struct {
	axis     bodyAxis
	dir      int
	lastCmd  time.Time
	lastName Command
}

// NewBodyPolicy returns an idle policy.
func NewBodyPolicy() *BodyPolicy {
	return &BodyPolicy{}
}

// CloseEnough is the geometric completion test: the apparent ball diameter
// reaches width/CloseEnoughDivisor, or the ball touches the bottom frame
// edge (still small but physically near).
func CloseEnough(cfg *Config, st State, w, h int) bool {
	if !st.HasFix || w == 0 {
		return false
	}
	diameter := float64(2 * st.LastRadius)
	thr := float64(w) / cfg.CloseEnoughDivisor
	if thr > 0 && diameter >= thr {
		return true
	}
	const bottomMargin = 2.0
	return st.Y+float64(st.LastRadius) >= float64(h)-bottomMargin
}

// Update runs one locked-target tick. When the target is X-centered and
// close enough it issues nothing and returns true; the session latches the
// completion sequence. Centering is a strict precondition: an off-center
// ball keeps turning no matter how large it appears, and Forward is never
// emitted while the X offset is outside the deadzone.
func (p *BodyPolicy) Update(cfg *Config, act MotionController, st State, w, h int, now time.Time) bool {
	if !st.HasFix || w == 0 || h == 0 {
		return false
	}

	xOff := st.X - float64(w)/2 // positive = ball right of center
	xDead := math.Max(20, float64(w)*cfg.DeadzoneRatio)
	margin := math.Max(8, xDead*0.25)
	xEnter := xDead + margin
	xExit := math.Max(0, xDead-margin)
	xCentered := math.Abs(xOff) <= xDead

	diameter := float64(2 * st.LastRadius)
	thr := float64(w) / cfg.CloseEnoughDivisor
	reached := CloseEnough(cfg, st, w, h)

	var cmd Command
	speed := cfg.MoveSpeed
	sendStop := false

	axisBefore := p.axis
	switch p.axis {
	case axisTurn:
		if math.Abs(xOff) < xExit {
			p.axis = axisNone
			p.dir = 0
			sendStop = true
		} else {
			nd := signOf(xOff)
			if nd != p.dir && math.Abs(xOff) > xEnter {
				p.dir = nd
			}
			cmd = turnCommand(p.dir)
			speed = p.kpSpeed(cfg, math.Abs(xOff)-xDead, float64(w)/2-xDead)
		}
	case axisApproach:
		switch {
		case !xCentered:
			p.axis = axisTurn
			p.dir = signOf(xOff)
			cmd = turnCommand(p.dir)
			speed = p.kpSpeed(cfg, math.Abs(xOff)-xDead, float64(w)/2-xDead)
		case reached:
			return true
		default:
			cmd = Forward
			speed = p.kpSpeed(cfg, thr-diameter, thr)
		}
	default:
		switch {
		case !xCentered:
			p.axis = axisTurn
			p.dir = signOf(xOff)
			cmd = turnCommand(p.dir)
			speed = p.kpSpeed(cfg, math.Abs(xOff)-xDead, float64(w)/2-xDead)
		case reached:
			return true
		default:
			p.axis = axisApproach
			p.dir = 1
			cmd = Forward
			speed = p.kpSpeed(cfg, thr-diameter, thr)
		}
	}
	axisChanged := axisBefore != p.axis

	if sendStop {
		// Re-entered the inner band: stop immediately, skip the interval.
		act.Move(Stop, cfg.MoveSpeed)
		p.lastCmd = now
		p.lastName = Stop
		return false
	}

	canSend := axisChanged || p.lastCmd.IsZero() || now.Sub(p.lastCmd) >= cfg.CommandInterval
	if cmd != "" && canSend {
		debug.TrackLog("body: axis=%s cmd=%s x_off=%+.0f dead=%.0f speed=%d\n",
			p.AxisName(), cmd, xOff, xDead, speed)
		act.Move(cmd, speed)
		p.lastCmd = now
		p.lastName = cmd
	}
	return false
}

// kpSpeed maps an error magnitude to a speed using the proportional gain.
// With BodyKp == 0 the fixed configured speed is kept.
func (p *BodyPolicy) kpSpeed(cfg *Config, errMag, span float64) int {
	if cfg.BodyKp <= 0 {
		return cfg.MoveSpeed
	}
	mag := math.Max(0, errMag)
	frac := mag / math.Max(1, span)
	eff := clamp(cfg.BodyKp*frac, 0, 1)
	return ClampSpeed(int(math.Round(MinSpeed + (MaxSpeed-MinSpeed)*eff)))
}

// AxisName reports the active axis for HUD lines.
func (p *BodyPolicy) AxisName() string {
	switch p.axis {
	case axisTurn:
		return "x"
	case axisApproach:
		return "y"
	default:
		return "-"
	}
}

// LastCommand returns the most recently issued body command.
func (p *BodyPolicy) LastCommand() Command {
	return p.lastName
}

// Reset clears axis state and rate-limit bookkeeping.
func (p *BodyPolicy) Reset() {
	*p = BodyPolicy{}
}

func signOf(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

func turnCommand(dir int) Command {
	if dir < 0 {
		return TurnLeft
	}
	return TurnRight
}

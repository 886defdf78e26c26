// Package robot speaks the dog's line-oriented TCP command protocol. One
// connection carries both directions: newline-terminated commands out,
// sensor replies back in. The Client implements tracking.Actuator so the
// session can drive it directly.
package robot

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mtdev/go-dogtrack/internal/log"
	"github.com/mtdev/go-dogtrack/pkg/debug"
	"github.com/mtdev/go-dogtrack/pkg/tracking"
)

// Wire command tokens understood by the dog firmware.
const (
	cmdTurnLeft  = "CMD_TURN_LEFT"
	cmdTurnRight = "CMD_TURN_RIGHT"
	cmdForward   = "CMD_MOVE_FORWARD"
	cmdBackward  = "CMD_MOVE_BACKWARD"
	cmdStop      = "CMD_MOVE_STOP"
	cmdRelax     = "CMD_RELAX"
	cmdStopPWM   = "CMD_STOP_PWM"
	cmdHead      = "CMD_HEAD"
	cmdSonic     = "CMD_SONIC"
	cmdPower     = "CMD_POWER"
	cmdBuzzer    = "CMD_BUZZER"
	cmdLED       = "CMD_LED"
	cmdLEDMode   = "CMD_LED_MOD"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 2 * time.Second
)

// TelemetryFunc receives parsed distance samples from the read loop.
type TelemetryFunc func(tracking.Sample)

// PowerFunc receives parsed battery voltage readings.
type PowerFunc func(volts float64)

// Client is a thread-safe command connection to the dog. Writes are
// serialized; the background read loop parses sensor replies and fans
// them out to the registered callbacks.
type Client struct {
	conn net.Conn

	mu         sync.Mutex
	lastMotion tracking.Command

	cbMu        sync.Mutex
	onTelemetry TelemetryFunc
	onPower     PowerFunc

	closeOnce sync.Once
	closed    chan struct{}
}

var _ tracking.Actuator = (*Client)(nil)

// Dial connects to the dog's command port (host:port) and starts the
// read loop.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial robot %s: %w", addr, err)
	}
	log.Info("connected to robot", "addr", addr)
	return NewClientWithConn(conn), nil
}

// NewClientWithConn wraps an existing connection. Used directly in tests
// with net.Pipe.
func NewClientWithConn(conn net.Conn) *Client {
	c := &Client{
		conn:   conn,
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// OnTelemetry registers the distance-sample callback.
func (c *Client) OnTelemetry(fn TelemetryFunc) {
	c.cbMu.Lock()
	c.onTelemetry = fn
	c.cbMu.Unlock()
}

// OnPower registers the battery-voltage callback.
func (c *Client) OnPower(fn PowerFunc) {
	c.cbMu.Lock()
	c.onPower = fn
	c.cbMu.Unlock()
}

func (c *Client) readLoop() {
	sc := bufio.NewScanner(c.conn)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		c.handleReply(line)
	}
	select {
	case <-c.closed:
	default:
		log.Warn("robot read loop ended", "error", sc.Err())
	}
}

func (c *Client) handleReply(line string) {
	parts := strings.Split(line, "#")
	switch parts[0] {
	case cmdSonic:
		if len(parts) < 2 {
			return
		}
		cm, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			debug.Log("robot: bad sonic reply %q\n", line)
			return
		}
		c.cbMu.Lock()
		fn := c.onTelemetry
		c.cbMu.Unlock()
		if fn != nil {
			fn(tracking.Sample{DistanceCm: cm, Timestamp: time.Now()})
		}
	case cmdPower:
		if len(parts) < 2 {
			return
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			debug.Log("robot: bad power reply %q\n", line)
			return
		}
		c.cbMu.Lock()
		fn := c.onPower
		c.cbMu.Unlock()
		if fn != nil {
			fn(v)
		}
	default:
		debug.Log("robot: unhandled reply %q\n", line)
	}
}

// send writes one newline-terminated command under the write lock.
func (c *Client) send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(line)
}

func (c *Client) sendLocked(line string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("send %s: %w", line, err)
	}
	debug.Log("robot: sent %s\n", line)
	return nil
}

// Move issues a motion token. The gait engine mishandles a direct switch
// from translation to turning, so a stop is injected between them.
func (c *Client) Move(cmd tracking.Command, speed int) error {
	speed = tracking.ClampSpeed(speed)

	c.mu.Lock()
	defer c.mu.Unlock()

	var wire string
	switch cmd {
	case tracking.TurnLeft:
		wire = cmdTurnLeft
	case tracking.TurnRight:
		wire = cmdTurnRight
	case tracking.Forward:
		wire = cmdForward
	case tracking.Backward:
		wire = cmdBackward
	case tracking.Stop:
		wire = cmdStop
	case tracking.Relax:
		c.lastMotion = cmd
		return c.sendLocked(cmdRelax)
	case tracking.Off:
		c.lastMotion = cmd
		return c.sendLocked(cmdStopPWM)
	default:
		return fmt.Errorf("unknown motion command %q", cmd)
	}

	turning := cmd == tracking.TurnLeft || cmd == tracking.TurnRight
	wasTranslating := c.lastMotion == tracking.Forward || c.lastMotion == tracking.Backward
	if turning && wasTranslating {
		if err := c.sendLocked(fmt.Sprintf("%s#%d", cmdStop, speed)); err != nil {
			return err
		}
	}

	c.lastMotion = cmd
	return c.sendLocked(fmt.Sprintf("%s#%d", wire, speed))
}

// Relax releases the gait into the resting pose.
func (c *Client) Relax() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastMotion = tracking.Relax
	return c.sendLocked(cmdRelax)
}

// PowerOff disables all servo PWM output.
func (c *Client) PowerOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastMotion = tracking.Off
	return c.sendLocked(cmdStopPWM)
}

// SetHeadAngle points the head servo. The firmware takes whole degrees.
func (c *Client) SetHeadAngle(deg float64) error {
	return c.send(fmt.Sprintf("%s#%d", cmdHead, int(deg+0.5)))
}

// Beep plays count buzzer pulses in the background; the call returns
// immediately so the tick loop is never blocked on a cue.
func (c *Client) Beep(count int, on, off time.Duration) error {
	go func() {
		for i := 0; i < count; i++ {
			if c.send(cmdBuzzer+"#1") != nil {
				return
			}
			time.Sleep(on)
			if c.send(cmdBuzzer+"#0") != nil {
				return
			}
			if i < count-1 {
				time.Sleep(off)
			}
		}
	}()
	return nil
}

// FlashLED pulses the LED strip count times in the background.
func (c *Client) FlashLED(count int, on, off time.Duration, r, g, b uint8) error {
	go func() {
		if c.send(cmdLEDMode+"#1") != nil {
			return
		}
		for i := 0; i < count; i++ {
			if c.send(fmt.Sprintf("%s#255#%d#%d#%d", cmdLED, r, g, b)) != nil {
				return
			}
			time.Sleep(on)
			if c.send(fmt.Sprintf("%s#255#0#0#0", cmdLED)) != nil {
				return
			}
			if i < count-1 {
				time.Sleep(off)
			}
		}
		c.send(cmdLEDMode + "#0")
	}()
	return nil
}

// PollSonic requests a distance reading; the reply arrives through the
// OnTelemetry callback.
func (c *Client) PollSonic() error {
	return c.send(cmdSonic)
}

// PollPower requests a battery reading for the OnPower callback.
func (c *Client) PollPower() error {
	return c.send(cmdPower)
}

// Close shuts the connection down; the read loop exits quietly.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

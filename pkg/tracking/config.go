package tracking

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds all tunable parameters for the tracking session. A Config
// value is immutable once published; live tuning swaps in a fresh snapshot
// (see Session.SetConfig) rather than mutating fields in place.
type Config struct {
	// Temporal filter
	MaxJumpRatio   float64       `json:"max_jump_ratio"`  // of min(w,h)
	SmoothAlpha    float64       `json:"smooth_alpha"`    // weight of the new sample
	TraceMaxAge    time.Duration `json:"trace_max_age"`   // bounded position history
	ReacquireAfter time.Duration `json:"reacquire_after"` // allow far jumps after this long

	// ReacquireAreaRatio admits a far jump immediately when the blob area
	// reaches this fraction of the frame; a ball that large is not noise.
	// Zero disables the shortcut.
	ReacquireAreaRatio float64 `json:"reacquire_area_ratio"`

	// Body policy
	DeadzoneRatio      float64       `json:"deadzone_ratio"` // of frame dimension, 20px floor
	MoveSpeed          int           `json:"move_speed"`     // fixed speed when BodyKp == 0
	BodyKp             float64       `json:"body_kp"`        // proportional speed scaling, 0 disables
	CommandInterval    time.Duration `json:"command_interval"`
	CloseEnoughDivisor float64       `json:"close_enough_divisor"` // diameter ≥ width/divisor

	// Lost-ball search + obstacle guard
	SearchForwardEnabled bool          `json:"search_forward_enabled"`
	ObstacleAvoidEnabled bool          `json:"obstacle_avoid_enabled"`
	ScanDuration         time.Duration `json:"scan_duration"`
	ForwardDuration      time.Duration `json:"forward_duration"`
	ScanSpeed            int           `json:"scan_speed"`
	SearchForwardSpeed   int           `json:"search_forward_speed"`
	ObstacleNearCm       float64       `json:"obstacle_near_cm"`
	ObstacleClearCm      float64       `json:"obstacle_clear_cm"`
	TelemetryMaxAge      time.Duration `json:"telemetry_max_age"`

	// Completion sequence
	OffDelay                 time.Duration `json:"off_delay"`
	StopRepeatInterval       time.Duration `json:"stop_repeat_interval"`
	ResetCompletionOnDisable bool          `json:"reset_completion_on_disable"`

	// Head servo
	Head HeadConfig `json:"head"`
}

// HeadConfig tunes the vertical head P-controller.
type HeadConfig struct {
	NeutralDeg  float64       `json:"neutral_deg"`
	MinDeg      float64       `json:"min_deg"`
	MaxDeg      float64       `json:"max_deg"`
	Kp          float64       `json:"kp"`       // deg per normalized error per update
	Deadband    float64       `json:"deadband"` // fraction of half frame height
	MaxStepDeg  float64       `json:"max_step_deg"`
	MinInterval time.Duration `json:"min_interval"`
}

// DefaultConfig returns the recommended configuration for approaching a
// ball indoors at walking pace.
func DefaultConfig() Config {
	return Config{
		// Filter - reject jumps over a third of the frame, smooth gently
		MaxJumpRatio:   0.35,
		SmoothAlpha:    0.35,
		TraceMaxAge:    3 * time.Second,
		ReacquireAfter: 800 * time.Millisecond,

		ReacquireAreaRatio: 0.02,

		// Body - turn to center first, then approach
		DeadzoneRatio:      0.18,
		MoveSpeed:          8,
		BodyKp:             0, // fixed speed unless tuned up
		CommandInterval:    600 * time.Millisecond,
		CloseEnoughDivisor: 3,

		// Search - scan-left 2s / forward 1s, stop on stale telemetry
		SearchForwardEnabled: true,
		ObstacleAvoidEnabled: true,
		ScanDuration:         2 * time.Second,
		ForwardDuration:      1 * time.Second,
		ScanSpeed:            4,
		SearchForwardSpeed:   4,
		ObstacleNearCm:       10,
		ObstacleClearCm:      30,
		TelemetryMaxAge:      2 * time.Second,

		// Completion - cue, stop, relax, power down after 5s
		OffDelay:                 5 * time.Second,
		StopRepeatInterval:       800 * time.Millisecond,
		ResetCompletionOnDisable: true,

		Head: HeadConfig{
			NeutralDeg:  90,
			MinDeg:      40,
			MaxDeg:      140,
			Kp:          0.5,
			Deadband:    0.02,
			MaxStepDeg:  3,
			MinInterval: 150 * time.Millisecond,
		},
	}
}

// SlowConfig trades responsiveness for stability on slippery floors.
func SlowConfig() Config {
	cfg := DefaultConfig()
	cfg.MoveSpeed = 4
	cfg.CommandInterval = time.Second
	cfg.SmoothAlpha = 0.25
	cfg.ScanSpeed = 2
	cfg.SearchForwardSpeed = 2
	return cfg
}

// AggressiveConfig reacts faster at the cost of more oscillation.
func AggressiveConfig() Config {
	cfg := DefaultConfig()
	cfg.MoveSpeed = 10
	cfg.BodyKp = 1.0
	cfg.CommandInterval = 300 * time.Millisecond
	cfg.SmoothAlpha = 0.5
	return cfg
}

// Clamp forces every field into its documented range. Out-of-range input
// never fails; it is pulled to the nearest bound.
func (c *Config) Clamp() {
	c.MaxJumpRatio = clamp(c.MaxJumpRatio, 0.05, 1.0)
	c.SmoothAlpha = clamp(c.SmoothAlpha, 0.01, 1.0)
	if c.TraceMaxAge <= 0 {
		c.TraceMaxAge = 3 * time.Second
	}
	if c.ReacquireAfter <= 0 {
		c.ReacquireAfter = 800 * time.Millisecond
	}
	c.ReacquireAreaRatio = clamp(c.ReacquireAreaRatio, 0, 0.25)

	c.DeadzoneRatio = clamp(c.DeadzoneRatio, 0.05, 0.50)
	c.MoveSpeed = ClampSpeed(c.MoveSpeed)
	c.BodyKp = clamp(c.BodyKp, 0, 5)
	c.CommandInterval = clampDur(c.CommandInterval, 50*time.Millisecond, 5*time.Second)
	c.CloseEnoughDivisor = clamp(c.CloseEnoughDivisor, 1.5, 8)

	c.ScanDuration = clampDur(c.ScanDuration, 200*time.Millisecond, 10*time.Second)
	c.ForwardDuration = clampDur(c.ForwardDuration, 200*time.Millisecond, 10*time.Second)
	c.ScanSpeed = ClampSpeed(c.ScanSpeed)
	c.SearchForwardSpeed = ClampSpeed(c.SearchForwardSpeed)
	if c.ObstacleNearCm <= 0 {
		c.ObstacleNearCm = 10
	}
	if c.ObstacleClearCm < c.ObstacleNearCm {
		c.ObstacleClearCm = c.ObstacleNearCm
	}
	c.TelemetryMaxAge = clampDur(c.TelemetryMaxAge, 500*time.Millisecond, 10*time.Second)

	c.OffDelay = clampDur(c.OffDelay, 0, 30*time.Second)
	c.StopRepeatInterval = clampDur(c.StopRepeatInterval, 200*time.Millisecond, 5*time.Second)

	h := &c.Head
	h.NeutralDeg = clamp(h.NeutralDeg, h.MinDeg, h.MaxDeg)
	if h.MinDeg >= h.MaxDeg {
		h.MinDeg, h.MaxDeg = 40, 140
	}
	h.Kp = clamp(h.Kp, 0, 10)
	h.Deadband = clamp(h.Deadband, 0, 0.5)
	h.MaxStepDeg = clamp(h.MaxStepDeg, 0.5, 30)
	h.MinInterval = clampDur(h.MinInterval, 10*time.Millisecond, 2*time.Second)
}

// LoadFile reads a JSON calibration file over DefaultConfig, so partial
// files only override what they name. The result is always clamped.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Clamp()
	return cfg, nil
}

// SaveFile writes the configuration as indented JSON.
func (c Config) SaveFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDur(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package config loads and validates the daemon configuration from a TOML
// file, falling back to defaults when no file exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Camera configures the RGB-D capture devices.
type Camera struct {
	ColorDevice int     `toml:"color_device"`
	DepthDevice int     `toml:"depth_device"`
	FPS         int     `toml:"fps"`
	DepthScale  float64 `toml:"depth_scale"`
	Fx          float64 `toml:"fx"`
	Fy          float64 `toml:"fy"`
	Cx          float64 `toml:"cx"`
	Cy          float64 `toml:"cy"`
}

// Robot configures the command transport endpoint.
type Robot struct {
	Address string `toml:"address"`
	// ExtrinsicRollDeg is the fixed camera→robot rotation about the
	// sensor X axis, in degrees.
	ExtrinsicRollDeg float64 `toml:"extrinsic_roll_deg"`
}

// Estimator selects and tunes the pose reconstruction algorithm.
type Estimator struct {
	// Algorithm is "closed_form" (default) or "plane_fit".
	Algorithm string `toml:"algorithm"`
	// PlaneEpsilonM is the RANSAC inlier distance in meters.
	PlaneEpsilonM float64 `toml:"plane_epsilon_m"`
}

// Filter tunes pose outlier rejection and smoothing.
type Filter struct {
	MaxAngleDeg  float64 `toml:"max_angle_deg"`
	MaxDistanceM float64 `toml:"max_distance_m"`
	SlerpT       float64 `toml:"slerp_t"`
	EMAAlpha     float64 `toml:"ema_alpha"`
}

// Gesture tunes the command state machine.
type Gesture struct {
	IncrementStep     float64 `toml:"increment_step"`
	DecrementStep     float64 `toml:"decrement_step"`
	CommandThreshold  float64 `toml:"command_threshold"`
	GripperThreshold  float64 `toml:"gripper_threshold"`
	GripperCooldownMs int     `toml:"gripper_cooldown_ms"`
	ResetCooldownMs   int     `toml:"reset_cooldown_ms"`
}

// Server configures the overlay/debug HTTP server.
type Server struct {
	Listen string `toml:"listen"`
}

// Config is the full daemon configuration.
type Config struct {
	Camera    Camera    `toml:"camera"`
	Robot     Robot     `toml:"robot"`
	Estimator Estimator `toml:"estimator"`
	Filter    Filter    `toml:"filter"`
	Gesture   Gesture   `toml:"gesture"`
	Server    Server    `toml:"server"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Camera: Camera{
			ColorDevice: 0,
			DepthDevice: 1,
			FPS:         15,
			DepthScale:  0.001,
			Fx:          615.0,
			Fy:          615.0,
			Cx:          320.0,
			Cy:          240.0,
		},
		Robot: Robot{
			Address:          "127.0.0.1:5000",
			ExtrinsicRollDeg: 90,
		},
		Estimator: Estimator{
			Algorithm:     "closed_form",
			PlaneEpsilonM: 0.005,
		},
		Filter: Filter{
			MaxAngleDeg:  30,
			MaxDistanceM: 0.15,
			SlerpT:       0.3,
			EMAAlpha:     0.3,
		},
		Gesture: Gesture{
			IncrementStep:     0.05,
			DecrementStep:     0.10,
			CommandThreshold:  0.7,
			GripperThreshold:  0.9,
			GripperCooldownMs: 2000,
			ResetCooldownMs:   2000,
		},
		Server: Server{
			Listen: ":8080",
		},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "handteleop.toml"
	}
	return filepath.Join(home, ".handteleop", "config.toml")
}

// Load reads the config file at path. A missing file yields the defaults;
// a present file is merged over them and validated.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges on everything the pipeline depends on.
func (c Config) Validate() error {
	if c.Camera.FPS < 1 || c.Camera.FPS > 60 {
		return fmt.Errorf("camera.fps %d out of range [1,60]", c.Camera.FPS)
	}
	if c.Camera.Fx <= 0 || c.Camera.Fy <= 0 {
		return fmt.Errorf("camera focal lengths must be positive")
	}
	if c.Robot.Address == "" {
		return errors.New("robot.address is required")
	}
	switch c.Estimator.Algorithm {
	case "closed_form", "plane_fit":
	default:
		return fmt.Errorf("estimator.algorithm %q: want closed_form or plane_fit", c.Estimator.Algorithm)
	}
	if c.Estimator.PlaneEpsilonM <= 0 {
		return errors.New("estimator.plane_epsilon_m must be positive")
	}
	if c.Filter.MaxAngleDeg <= 0 || c.Filter.MaxDistanceM <= 0 {
		return errors.New("filter thresholds must be positive")
	}
	if c.Filter.SlerpT < 0 || c.Filter.SlerpT > 1 {
		return fmt.Errorf("filter.slerp_t %v out of [0,1]", c.Filter.SlerpT)
	}
	if c.Filter.EMAAlpha < 0 || c.Filter.EMAAlpha > 1 {
		return fmt.Errorf("filter.ema_alpha %v out of [0,1]", c.Filter.EMAAlpha)
	}
	for name, v := range map[string]float64{
		"gesture.increment_step":    c.Gesture.IncrementStep,
		"gesture.decrement_step":    c.Gesture.DecrementStep,
		"gesture.command_threshold": c.Gesture.CommandThreshold,
		"gesture.gripper_threshold": c.Gesture.GripperThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s %v out of (0,1]", name, v)
		}
	}
	if c.Gesture.GripperCooldownMs < 0 || c.Gesture.ResetCooldownMs < 0 {
		return errors.New("gesture cooldowns must not be negative")
	}
	return nil
}

// MaxAngleRad converts the filter angle threshold to radians.
func (f Filter) MaxAngleRad() float64 {
	return f.MaxAngleDeg * math.Pi / 180
}

// ExtrinsicRollRad converts the extrinsic roll to radians.
func (r Robot) ExtrinsicRollRad() float64 {
	return r.ExtrinsicRollDeg * math.Pi / 180
}

// GripperCooldown returns the gripper cooldown as a duration.
func (g Gesture) GripperCooldown() time.Duration {
	return time.Duration(g.GripperCooldownMs) * time.Millisecond
}

// ResetCooldown returns the reset cooldown as a duration.
func (g Gesture) ResetCooldown() time.Duration {
	return time.Duration(g.ResetCooldownMs) * time.Millisecond
}

// Package gesture converts per-frame gesture labels into discrete
// teleoperation commands using confidence accumulators and cooldowns.
package gesture

import (
	"time"

	"handteleop/internal/classifier"
	"handteleop/internal/command"
	"handteleop/internal/pose"
)

// Default state machine parameters.
const (
	DefaultIncrementStep    = 0.05
	DefaultDecrementStep    = 0.10
	DefaultCommandThreshold = 0.7
	DefaultGripperThreshold = 0.9
	DefaultGripperCooldown  = 2000 * time.Millisecond
	DefaultResetCooldown    = 2000 * time.Millisecond
)

// Config holds the tunable parameters of the state machine.
type Config struct {
	// IncrementStep is added to an accumulator when the frame label
	// matches its class.
	IncrementStep float64
	// DecrementStep is subtracted when the frame label does not match.
	DecrementStep float64
	// CommandThreshold gates tracking and reset commands.
	CommandThreshold float64
	// GripperThreshold gates the gripper toggle.
	GripperThreshold float64
	// GripperCooldown is the minimum interval between gripper toggles.
	GripperCooldown time.Duration
	// ResetCooldown is the minimum interval between reset commands.
	ResetCooldown time.Duration
}

// DefaultConfig returns the standard thresholds and cooldowns.
func DefaultConfig() Config {
	return Config{
		IncrementStep:    DefaultIncrementStep,
		DecrementStep:    DefaultDecrementStep,
		CommandThreshold: DefaultCommandThreshold,
		GripperThreshold: DefaultGripperThreshold,
		GripperCooldown:  DefaultGripperCooldown,
		ResetCooldown:    DefaultResetCooldown,
	}
}

// Machine accumulates per-frame gesture evidence and derives at most one
// command per frame. It is owned by the worker lane and is not safe for
// concurrent use.
//
// Initial state: all confidences zero, not tracking, gripper open, no
// cooldown timestamps. The machine has no terminal state.
type Machine struct {
	cfg Config

	openPalm float64
	gripper  float64
	reset    float64

	tracking      bool
	gripperClosed bool
	lastPose      *pose.Pose

	lastGripperFire time.Time
	lastResetFire   time.Time
}

// NewMachine creates a Machine with the given configuration.
func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Tracking reports whether a tracking episode is active.
func (m *Machine) Tracking() bool {
	return m.tracking
}

// GripperClosed reports the commanded gripper state.
func (m *Machine) GripperClosed() bool {
	return m.gripperClosed
}

// Confidence returns the accumulator for the given label class.
// LabelOther always reads zero.
func (m *Machine) Confidence(l classifier.Label) float64 {
	switch l {
	case classifier.LabelOpenPalm:
		return m.openPalm
	case classifier.LabelGripperTrigger:
		return m.gripper
	case classifier.LabelResetTrigger:
		return m.reset
	default:
		return 0
	}
}

// Step feeds one frame's label and filtered pose into the machine and
// returns the derived command, if any. A frame with no usable gesture is
// fed as LabelOther with a nil pose; confidences then decay and tracking
// eventually ends on its own.
//
// Command priority per frame: gripper toggle, then reset, then tracking.
func (m *Machine) Step(label classifier.Label, p *pose.Pose, now time.Time) (command.Command, bool) {
	m.bump(&m.openPalm, label == classifier.LabelOpenPalm)
	m.bump(&m.gripper, label == classifier.LabelGripperTrigger)
	m.bump(&m.reset, label == classifier.LabelResetTrigger)

	if m.gripper > m.cfg.GripperThreshold && m.cooled(m.lastGripperFire, m.cfg.GripperCooldown, now) {
		m.gripper = 0
		m.gripperClosed = !m.gripperClosed
		m.lastGripperFire = now
		return command.Command{Kind: command.Gripper}, true
	}

	if m.reset > m.cfg.CommandThreshold && m.cooled(m.lastResetFire, m.cfg.ResetCooldown, now) {
		m.reset = 0
		m.lastResetFire = now
		return command.Command{Kind: command.Reset}, true
	}

	if m.openPalm > m.cfg.CommandThreshold {
		if p != nil {
			m.lastPose = p
			if !m.tracking {
				m.tracking = true
				return command.Command{Kind: command.Start, Pose: p}, true
			}
			return command.Command{Kind: command.Track, Pose: p}, true
		}
		// Confident but no pose this frame: emit nothing, keep the episode.
		return command.Command{}, false
	}

	if m.tracking {
		end := command.Command{Kind: command.End, Pose: m.lastPose}
		m.tracking = false
		m.lastPose = nil
		return end, true
	}

	return command.Command{}, false
}

// bump moves one accumulator by the configured step and clamps to [0,1].
func (m *Machine) bump(conf *float64, match bool) {
	if match {
		*conf += m.cfg.IncrementStep
	} else {
		*conf -= m.cfg.DecrementStep
	}
	if *conf < 0 {
		*conf = 0
	}
	if *conf > 1 {
		*conf = 1
	}
}

// cooled reports whether enough time has passed since the last firing.
func (m *Machine) cooled(last time.Time, cooldown time.Duration, now time.Time) bool {
	return last.IsZero() || now.Sub(last) >= cooldown
}

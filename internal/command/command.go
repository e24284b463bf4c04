// Package command defines the discrete teleoperation commands and their
// wire encoding.
package command

import "handteleop/internal/pose"

// Kind identifies a discrete teleoperation command.
type Kind int

const (
	// Start opens a tracking episode at the given pose.
	Start Kind = iota
	// Track updates the tracked pose.
	Track
	// End closes the tracking episode at the last accepted pose.
	End
	// Gripper toggles the gripper open/closed. No payload.
	Gripper
	// Reset asks the robot to return to its home configuration. No payload.
	Reset
)

// Tag returns the wire token for the command kind.
func (k Kind) Tag() string {
	switch k {
	case Start:
		return "START"
	case Track:
		return "TRACK"
	case End:
		return "END"
	case Gripper:
		return "GRIPPER"
	case Reset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// HasPose reports whether commands of this kind carry a pose payload.
func (k Kind) HasPose() bool {
	return k == Start || k == Track || k == End
}

// Command is one discrete teleoperation command. Pose is set only for
// Start/Track/End.
type Command struct {
	Kind Kind
	Pose *pose.Pose
}

package command

import (
	"fmt"
	"math"
	"strings"

	"handteleop/internal/pose"
)

// DefaultExtrinsic is the fixed camera→robot rotation: 90° about the
// sensor's X axis.
func DefaultExtrinsic() pose.Rotation {
	return pose.RotationAboutX(math.Pi / 2)
}

// Encoder transforms poses into the robot frame and serializes commands
// under the ASCII wire grammar:
//
//	START x y z qw qx qy qz
//	TRACK x y z qw qx qy qz
//	END   x y z qw qx qy qz
//	GRIPPER
//	RESET
//
// The encoder performs no I/O; callers hand the bytes to the transport.
type Encoder struct {
	extrinsic pose.Rotation
}

// NewEncoder creates an Encoder with the given camera→robot extrinsic
// rotation.
func NewEncoder(extrinsic pose.Rotation) *Encoder {
	return &Encoder{extrinsic: extrinsic}
}

// Encode serializes one command. Commands whose kind carries a pose but
// whose payload is nil encode as the bare tag; the robot treats that as a
// no-motion marker.
func (e *Encoder) Encode(c Command) []byte {
	var b strings.Builder
	b.WriteString(c.Kind.Tag())

	if c.Kind.HasPose() && c.Pose != nil {
		robot := e.toRobotFrame(*c.Pose)
		q := robot.Orientation.Quat()
		fmt.Fprintf(&b, " %.6f %.6f %.6f %.6f %.6f %.6f %.6f",
			robot.Translation.X, robot.Translation.Y, robot.Translation.Z,
			q.Real, q.Imag, q.Jmag, q.Kmag)
	}

	b.WriteByte('\n')
	return []byte(b.String())
}

// toRobotFrame rotates both translation and orientation by the extrinsic.
func (e *Encoder) toRobotFrame(p pose.Pose) pose.Pose {
	return pose.Pose{
		Translation: e.extrinsic.Apply(p.Translation),
		Orientation: e.extrinsic.Mul(p.Orientation),
	}
}

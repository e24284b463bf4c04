// Package pose reconstructs, validates, and filters 3D palm poses.
package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// OrthoTol is the tolerance used when validating that a rotation matrix is
// orthonormal and a proper rotation.
const OrthoTol = 1e-6

// ErrNotRotation is returned when a candidate orientation matrix is not an
// orthonormal proper rotation.
var ErrNotRotation = errors.New("orientation is not a proper rotation")

// Rotation is a 3×3 rotation matrix in row-major order. Its columns are the
// unit axes of the represented frame expressed in the parent frame.
type Rotation [3][3]float64

// Identity returns the identity rotation.
func Identity() Rotation {
	return Rotation{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// RotationFromAxes builds a rotation whose columns are x, y, z.
func RotationFromAxes(x, y, z r3.Vector) Rotation {
	return Rotation{
		{x.X, y.X, z.X},
		{x.Y, y.Y, z.Y},
		{x.Z, y.Z, z.Z},
	}
}

// RotationAboutX returns the rotation by angle radians about the X axis.
func RotationAboutX(angle float64) Rotation {
	c, s := math.Cos(angle), math.Sin(angle)
	return Rotation{
		{1, 0, 0},
		{0, c, -s},
		{0, s, c},
	}
}

// Col returns column i as a vector.
func (r Rotation) Col(i int) r3.Vector {
	return r3.Vector{X: r[0][i], Y: r[1][i], Z: r[2][i]}
}

// Apply rotates v.
func (r Rotation) Apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// Mul returns r·o.
func (r Rotation) Mul(o Rotation) Rotation {
	var out Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += r[i][k] * o[k][j]
			}
		}
	}
	return out
}

// Det returns the determinant.
func (r Rotation) Det() float64 {
	return r[0][0]*(r[1][1]*r[2][2]-r[1][2]*r[2][1]) -
		r[0][1]*(r[1][0]*r[2][2]-r[1][2]*r[2][0]) +
		r[0][2]*(r[1][0]*r[2][1]-r[1][1]*r[2][0])
}

// validate checks that the columns are unit length and pairwise orthogonal
// within OrthoTol and that the matrix is a proper rotation (det ≈ +1).
func (r Rotation) validate() error {
	for i := 0; i < 3; i++ {
		ci := r.Col(i)
		if math.Abs(ci.Norm()-1) > OrthoTol {
			return fmt.Errorf("%w: column %d has norm %v", ErrNotRotation, i, ci.Norm())
		}
		for j := i + 1; j < 3; j++ {
			if d := math.Abs(ci.Dot(r.Col(j))); d > OrthoTol {
				return fmt.Errorf("%w: columns %d,%d have dot %v", ErrNotRotation, i, j, d)
			}
		}
	}
	if d := r.Det(); math.Abs(d-1) > 1e-3 {
		// Orthonormal columns force det = ±1; a negative value is a reflection.
		return fmt.Errorf("%w: determinant %v", ErrNotRotation, d)
	}
	return nil
}

// Quat converts the rotation to a unit quaternion (w, x, y, z).
func (r Rotation) Quat() quat.Number {
	trace := r[0][0] + r[1][1] + r[2][2]

	var q quat.Number
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = quat.Number{
			Real: s / 4,
			Imag: (r[2][1] - r[1][2]) / s,
			Jmag: (r[0][2] - r[2][0]) / s,
			Kmag: (r[1][0] - r[0][1]) / s,
		}
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		s := math.Sqrt(1+r[0][0]-r[1][1]-r[2][2]) * 2
		q = quat.Number{
			Real: (r[2][1] - r[1][2]) / s,
			Imag: s / 4,
			Jmag: (r[0][1] + r[1][0]) / s,
			Kmag: (r[0][2] + r[2][0]) / s,
		}
	case r[1][1] > r[2][2]:
		s := math.Sqrt(1+r[1][1]-r[0][0]-r[2][2]) * 2
		q = quat.Number{
			Real: (r[0][2] - r[2][0]) / s,
			Imag: (r[0][1] + r[1][0]) / s,
			Jmag: s / 4,
			Kmag: (r[1][2] + r[2][1]) / s,
		}
	default:
		s := math.Sqrt(1+r[2][2]-r[0][0]-r[1][1]) * 2
		q = quat.Number{
			Real: (r[1][0] - r[0][1]) / s,
			Imag: (r[0][2] + r[2][0]) / s,
			Jmag: (r[1][2] + r[2][1]) / s,
			Kmag: s / 4,
		}
	}

	return normalizeQuat(q)
}

// RotationFromQuat converts a unit quaternion into a rotation matrix.
func RotationFromQuat(q quat.Number) Rotation {
	q = normalizeQuat(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return Rotation{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

func normalizeQuat(q quat.Number) quat.Number {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

func quatDot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// GeodesicAngle returns the angular separation between two orientations in
// radians along the shortest arc: 2·acos(clamp(|a·b|, -1, 1)).
func GeodesicAngle(a, b Rotation) float64 {
	d := math.Abs(quatDot(a.Quat(), b.Quat()))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// Slerp spherically interpolates from a (t=0) to b (t=1) along the shortest
// great-circle arc.
func Slerp(a, b Rotation, t float64) Rotation {
	qa, qb := a.Quat(), b.Quat()

	d := quatDot(qa, qb)
	if d < 0 {
		// Take the short way around.
		qb = quat.Scale(-1, qb)
		d = -d
	}
	if d > 1 {
		d = 1
	}

	theta := math.Acos(d)
	if theta < 1e-9 {
		// Orientations nearly coincide; linear blend is exact enough.
		return RotationFromQuat(normalizeQuat(quat.Add(
			quat.Scale(1-t, qa),
			quat.Scale(t, qb),
		)))
	}

	sinTheta := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sinTheta
	wb := math.Sin(t*theta) / sinTheta

	return RotationFromQuat(quat.Add(quat.Scale(wa, qa), quat.Scale(wb, qb)))
}

// Pose is a 3D palm pose: translation in meters plus an orthonormal
// orientation, both in the camera frame.
type Pose struct {
	Translation r3.Vector
	Orientation Rotation
}

// New constructs a Pose, rejecting orientations that are not proper
// rotations.
func New(translation r3.Vector, orientation Rotation) (Pose, error) {
	if err := orientation.validate(); err != nil {
		return Pose{}, err
	}
	return Pose{Translation: translation, Orientation: orientation}, nil
}

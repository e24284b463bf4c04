package pose

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"

	"handteleop/internal/capture"
	"handteleop/internal/classifier"
)

// ErrPoseUnavailable is returned when a frame does not contain enough valid
// geometry to reconstruct a palm pose. The pipeline treats it as "no command
// this frame"; it is never fatal.
var ErrPoseUnavailable = errors.New("pose unavailable")

// MinValidPoints is the minimum number of unprojected palm points required
// before any reconstruction is attempted.
const MinValidPoints = 3

// palmAnchors are the landmark indices used for pose reconstruction:
// the wrist, the four finger knuckles, and the middle fingertip.
var palmAnchors = []int{
	classifier.Wrist,
	classifier.IndexMCP,
	classifier.MiddleMCP,
	classifier.RingMCP,
	classifier.PinkyMCP,
	classifier.MiddleTip,
}

// Estimator reconstructs a palm pose from landmarks and a depth map.
type Estimator interface {
	Estimate(lm classifier.LandmarkSet, depth capture.DepthMap, intr capture.Intrinsics) (Pose, error)
}

// unproject maps a pixel (u, v) with depth d meters through the inverse
// pinhole model.
func unproject(u, v, d float64, intr capture.Intrinsics) r3.Vector {
	return r3.Vector{
		X: (u - intr.Cx) * d / intr.Fx,
		Y: (v - intr.Cy) * d / intr.Fy,
		Z: d,
	}
}

// anchorPoints unprojects every palm anchor with a usable depth sample.
// The returned map is keyed by landmark index.
func anchorPoints(lm classifier.LandmarkSet, depth capture.DepthMap, intr capture.Intrinsics) (map[int]r3.Vector, error) {
	if !intr.Valid() {
		return nil, ErrPoseUnavailable
	}
	if depth.Empty() {
		return nil, ErrPoseUnavailable
	}

	points := make(map[int]r3.Vector, len(palmAnchors))
	for _, idx := range palmAnchors {
		p := lm.Points[idx]
		u := p.X * float64(depth.Width)
		v := p.Y * float64(depth.Height)

		d := depth.At(int(u), int(v))
		if math.IsNaN(d) || d <= 0 {
			continue
		}

		points[idx] = unproject(u, v, d, intr)
	}

	if len(points) < MinValidPoints {
		return nil, ErrPoseUnavailable
	}
	return points, nil
}

// ClosedForm reconstructs the palm frame directly from four keypoints.
// It is deterministic and cheap, and is the default estimator.
type ClosedForm struct{}

// NewClosedForm returns the keypoint Gram-Schmidt estimator.
func NewClosedForm() *ClosedForm {
	return &ClosedForm{}
}

// Estimate builds the palm frame:
//
//	X = normalize(wrist - fingertip)
//	Y = normalize(indexMCP - ringMCP), negated for left hands,
//	    then orthogonalized against X (Gram-Schmidt)
//	Z = X × Y to complete a right-handed frame
//
// Translation is the wrist 3D point.
func (e *ClosedForm) Estimate(lm classifier.LandmarkSet, depth capture.DepthMap, intr capture.Intrinsics) (Pose, error) {
	points, err := anchorPoints(lm, depth, intr)
	if err != nil {
		return Pose{}, err
	}

	wrist, okW := points[classifier.Wrist]
	tip, okT := points[classifier.MiddleTip]
	indexMCP, okI := points[classifier.IndexMCP]
	ringMCP, okR := points[classifier.RingMCP]
	if !okW || !okT || !okI || !okR {
		return Pose{}, ErrPoseUnavailable
	}

	x, ok := normalized(wrist.Sub(tip))
	if !ok {
		return Pose{}, ErrPoseUnavailable
	}

	y0 := indexMCP.Sub(ringMCP)
	if lm.Handedness == "Left" {
		y0 = y0.Mul(-1)
	}

	// Gram-Schmidt: remove the X component, then normalize.
	y, ok := normalized(y0.Sub(x.Mul(y0.Dot(x))))
	if !ok {
		return Pose{}, ErrPoseUnavailable
	}

	z := x.Cross(y)

	return New(wrist, RotationFromAxes(x, y, z))
}

// normalized returns the unit vector of v, or ok=false for degenerate input.
func normalized(v r3.Vector) (r3.Vector, bool) {
	n := v.Norm()
	if n < 1e-9 || math.IsNaN(n) {
		return r3.Vector{}, false
	}
	return v.Mul(1 / n), true
}

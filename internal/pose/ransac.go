package pose

import (
	"math"

	"github.com/golang/geo/r3"

	"handteleop/internal/capture"
	"handteleop/internal/classifier"
)

// DefaultPlaneEpsilon is the inlier distance threshold for the plane fit,
// in meters (5mm).
const DefaultPlaneEpsilon = 0.005

// PlaneFit reconstructs the palm frame by fitting a plane through all valid
// palm points with an exhaustive 3-point RANSAC. It tolerates individual bad
// depth samples better than the closed form at higher cost.
type PlaneFit struct {
	// Epsilon is the maximum perpendicular point-to-plane distance for a
	// point to count as an inlier.
	Epsilon float64
}

// NewPlaneFit returns the RANSAC plane-fit estimator. epsilon <= 0 selects
// DefaultPlaneEpsilon.
func NewPlaneFit(epsilon float64) *PlaneFit {
	if epsilon <= 0 {
		epsilon = DefaultPlaneEpsilon
	}
	return &PlaneFit{Epsilon: epsilon}
}

// Estimate evaluates every 3-point plane hypothesis over the valid palm
// points, keeps the one with the most inliers (ties broken by lowest RMS
// residual among its inliers), and builds an orthonormal frame in that
// plane. At least 3 inliers are required.
func (e *PlaneFit) Estimate(lm classifier.LandmarkSet, depth capture.DepthMap, intr capture.Intrinsics) (Pose, error) {
	pointsByIdx, err := anchorPoints(lm, depth, intr)
	if err != nil {
		return Pose{}, err
	}

	points := make([]r3.Vector, 0, len(pointsByIdx))
	for _, idx := range palmAnchors {
		if p, ok := pointsByIdx[idx]; ok {
			points = append(points, p)
		}
	}

	var (
		bestNormal  r3.Vector
		bestOrigin  r3.Vector
		bestInliers int
		bestRMS     = math.Inf(1)
	)

	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			for k := j + 1; k < len(points); k++ {
				a, b, c := points[i], points[j], points[k]

				n, ok := normalized(b.Sub(a).Cross(c.Sub(a)))
				if !ok {
					continue // collinear triple
				}

				inliers := 0
				var sumSq float64
				for _, p := range points {
					d := math.Abs(n.Dot(p.Sub(a)))
					if d < e.Epsilon {
						inliers++
						sumSq += d * d
					}
				}
				if inliers < MinValidPoints {
					continue
				}

				rms := math.Sqrt(sumSq / float64(inliers))
				if inliers > bestInliers || (inliers == bestInliers && rms < bestRMS) {
					bestNormal = n
					bestOrigin = a
					bestInliers = inliers
					bestRMS = rms
				}
			}
		}
	}

	if bestInliers < MinValidPoints {
		return Pose{}, ErrPoseUnavailable
	}

	// Keep the normal pointing toward the camera so the frame is stable
	// across hypotheses.
	if bestNormal.Z > 0 {
		bestNormal = bestNormal.Mul(-1)
	}

	return e.framePose(pointsByIdx, bestOrigin, bestNormal)
}

// framePose completes an orthonormal frame from the plane normal (Z) and an
// in-plane reference direction via Gram-Schmidt. The wrist→fingertip
// direction is preferred as the reference; any anchor pair serves otherwise.
func (e *PlaneFit) framePose(points map[int]r3.Vector, origin, normal r3.Vector) (Pose, error) {
	ref := referenceVector(points)

	x, ok := normalized(ref.Sub(normal.Mul(ref.Dot(normal))))
	if !ok {
		return Pose{}, ErrPoseUnavailable
	}
	y := normal.Cross(x)

	translation := origin
	if wrist, ok := points[classifier.Wrist]; ok {
		translation = wrist
	}

	return New(translation, RotationFromAxes(x, y, normal))
}

func referenceVector(points map[int]r3.Vector) r3.Vector {
	if wrist, ok := points[classifier.Wrist]; ok {
		if tip, ok := points[classifier.MiddleTip]; ok {
			return wrist.Sub(tip)
		}
	}

	// Fall back to the span of whatever anchors survived.
	var first r3.Vector
	seen := false
	for _, idx := range palmAnchors {
		p, ok := points[idx]
		if !ok {
			continue
		}
		if !seen {
			first = p
			seen = true
			continue
		}
		return p.Sub(first)
	}
	return r3.Vector{X: 1}
}

package pose

import (
	"errors"
	"math"
	"testing"

	"handteleop/internal/capture"
	"handteleop/internal/classifier"
)

var testIntrinsics = capture.Intrinsics{Fx: 600, Fy: 600, Cx: 320, Cy: 240}

// flatDepth builds a depth map where every pixel lies on the plane z = d.
func flatDepth(d float64) capture.DepthMap {
	m := capture.NewDepthMap(640, 480)
	for i := range m.Data {
		m.Data[i] = float32(d)
	}
	return m
}

func TestClosedFormEstimate(t *testing.T) {
	lm := classifier.FlatPalmLandmarks("Right")
	depth := flatDepth(0.5)

	p, err := NewClosedForm().Estimate(lm, depth, testIntrinsics)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	checkOrthonormal(t, p.Orientation)

	// Translation is the unprojected wrist; the fixture puts every point
	// at 0.5m depth.
	if math.Abs(p.Translation.Z-0.5) > 1e-9 {
		t.Errorf("translation Z = %v, want 0.5", p.Translation.Z)
	}
}

func TestClosedFormLeftHandFlipsY(t *testing.T) {
	depth := flatDepth(0.5)

	right, err := NewClosedForm().Estimate(classifier.FlatPalmLandmarks("Right"), depth, testIntrinsics)
	if err != nil {
		t.Fatalf("right-hand estimate failed: %v", err)
	}
	left, err := NewClosedForm().Estimate(classifier.FlatPalmLandmarks("Left"), depth, testIntrinsics)
	if err != nil {
		t.Fatalf("left-hand estimate failed: %v", err)
	}

	// Same geometry, opposite handedness: the Y axis reverses.
	if d := right.Orientation.Col(1).Dot(left.Orientation.Col(1)); d > -0.99 {
		t.Errorf("left/right Y axes dot = %v, want ≈ -1", d)
	}
}

func TestClosedFormDegenerateLandmarks(t *testing.T) {
	// Wrist and fingertip at the same pixel: zero-length X axis.
	lm := classifier.FlatPalmLandmarks("Right")
	lm.Points[classifier.MiddleTip] = lm.Points[classifier.Wrist]

	_, err := NewClosedForm().Estimate(lm, flatDepth(0.5), testIntrinsics)
	if !errors.Is(err, ErrPoseUnavailable) {
		t.Fatalf("expected ErrPoseUnavailable for degenerate landmarks, got %v", err)
	}
}

func TestEstimateTooFewValidDepthSamples(t *testing.T) {
	lm := classifier.FlatPalmLandmarks("Right")

	// Depth map full of invalid (zero) samples except under two anchors.
	depth := capture.NewDepthMap(640, 480)
	for _, idx := range []int{classifier.Wrist, classifier.MiddleTip} {
		p := lm.Points[idx]
		depth.Set(int(p.X*640), int(p.Y*480), 0.5)
	}

	for _, est := range []Estimator{NewClosedForm(), NewPlaneFit(0)} {
		if _, err := est.Estimate(lm, depth, testIntrinsics); !errors.Is(err, ErrPoseUnavailable) {
			t.Errorf("%T: expected ErrPoseUnavailable with 2 valid points, got %v", est, err)
		}
	}
}

func TestEstimateNaNDepthSkipped(t *testing.T) {
	lm := classifier.FlatPalmLandmarks("Right")
	depth := flatDepth(0.5)

	// Poison the ring MCP sample; the closed form needs it.
	p := lm.Points[classifier.RingMCP]
	depth.Set(int(p.X*640), int(p.Y*480), math.NaN())

	if _, err := NewClosedForm().Estimate(lm, depth, testIntrinsics); !errors.Is(err, ErrPoseUnavailable) {
		t.Fatalf("expected ErrPoseUnavailable with NaN anchor depth, got %v", err)
	}

	// The plane fit still has five valid points and must succeed.
	pose, err := NewPlaneFit(0).Estimate(lm, depth, testIntrinsics)
	if err != nil {
		t.Fatalf("plane fit failed with one NaN sample: %v", err)
	}
	checkOrthonormal(t, pose.Orientation)
}

func TestEstimateInvalidIntrinsics(t *testing.T) {
	lm := classifier.FlatPalmLandmarks("Right")
	depth := flatDepth(0.5)

	for _, est := range []Estimator{NewClosedForm(), NewPlaneFit(0)} {
		if _, err := est.Estimate(lm, depth, capture.Intrinsics{}); !errors.Is(err, ErrPoseUnavailable) {
			t.Errorf("%T: expected ErrPoseUnavailable for zero intrinsics, got %v", est, err)
		}
	}
}

func TestPlaneFitEstimate(t *testing.T) {
	lm := classifier.FlatPalmLandmarks("Right")

	p, err := NewPlaneFit(0).Estimate(lm, flatDepth(0.5), testIntrinsics)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	checkOrthonormal(t, p.Orientation)

	// The palm plane is z = 0.5; its normal points along the optical axis,
	// oriented toward the camera.
	z := p.Orientation.Col(2)
	if math.Abs(z.X) > 1e-6 || math.Abs(z.Y) > 1e-6 || math.Abs(z.Z+1) > 1e-6 {
		t.Errorf("plane normal = %+v, want (0,0,-1)", z)
	}
}

func TestPlaneFitRejectsOutlier(t *testing.T) {
	lm := classifier.FlatPalmLandmarks("Right")
	depth := flatDepth(0.5)

	// One anchor far off the palm plane.
	p := lm.Points[classifier.PinkyMCP]
	depth.Set(int(p.X*640), int(p.Y*480), 0.8)

	got, err := NewPlaneFit(0).Estimate(lm, depth, testIntrinsics)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	// The winning plane is still z = 0.5 despite the outlier.
	z := got.Orientation.Col(2)
	if math.Abs(z.Z+1) > 1e-6 {
		t.Errorf("plane normal Z = %v, want -1", z.Z)
	}
	if math.Abs(got.Translation.Z-0.5) > 1e-9 {
		t.Errorf("translation Z = %v, want 0.5", got.Translation.Z)
	}
}

func TestUnproject(t *testing.T) {
	// Principal point unprojects onto the optical axis.
	v := unproject(320, 240, 0.5, testIntrinsics)
	if v.X != 0 || v.Y != 0 || v.Z != 0.5 {
		t.Errorf("unproject(cx,cy) = %+v, want (0,0,0.5)", v)
	}

	// 60px right of center at fx=600 and 0.5m depth is 5cm off-axis.
	v = unproject(380, 240, 0.5, testIntrinsics)
	if math.Abs(v.X-0.05) > 1e-12 {
		t.Errorf("unproject X = %v, want 0.05", v.X)
	}
}

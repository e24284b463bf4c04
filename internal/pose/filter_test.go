package pose

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func testFilterConfig() FilterConfig {
	return FilterConfig{
		MaxAngle:    30 * math.Pi / 180,
		MaxDistance: 0.15,
		SlerpT:      0.5,
		EMAAlpha:    0.25,
	}
}

func mustPose(t *testing.T, translation r3.Vector, orientation Rotation) Pose {
	t.Helper()
	p, err := New(translation, orientation)
	if err != nil {
		t.Fatalf("pose construction failed: %v", err)
	}
	return p
}

func TestFilterAcceptsFirstPoseAsBaseline(t *testing.T) {
	f := NewFilter(testFilterConfig())

	raw := mustPose(t, r3.Vector{Z: 0.5}, RotationAboutX(1.0))
	got, ok := f.Apply(raw, false)
	if !ok {
		t.Fatal("first pose must be accepted unconditionally")
	}
	if got != raw {
		t.Errorf("baseline pose altered: got %+v", got)
	}
	if f.Last() == nil {
		t.Error("baseline not stored")
	}
}

func TestFilterRejectsLargeAngleJump(t *testing.T) {
	f := NewFilter(testFilterConfig())

	first := mustPose(t, r3.Vector{Z: 0.5}, Identity())
	f.Apply(first, true)

	// 40° jump against a 30° limit.
	second := mustPose(t, r3.Vector{Z: 0.5}, RotationAboutX(40*math.Pi/180))
	if _, ok := f.Apply(second, true); ok {
		t.Fatal("expected rejection for 40° jump with 30° limit")
	}

	// While tracking, the previous accepted pose is retained.
	last := f.Last()
	if last == nil {
		t.Fatal("previous pose dropped while tracking")
	}
	if a := GeodesicAngle(last.Orientation, first.Orientation); a > 1e-9 {
		t.Errorf("stored pose changed by %v rad after rejection", a)
	}
}

func TestFilterRejectionDropsBaselineWhenNotTracking(t *testing.T) {
	f := NewFilter(testFilterConfig())

	f.Apply(mustPose(t, r3.Vector{Z: 0.5}, Identity()), false)
	second := mustPose(t, r3.Vector{Z: 0.5}, RotationAboutX(40*math.Pi/180))
	if _, ok := f.Apply(second, false); ok {
		t.Fatal("expected rejection")
	}
	if f.Last() != nil {
		t.Error("baseline must be dropped when not tracking")
	}

	// The next pose re-seeds the baseline.
	third := mustPose(t, r3.Vector{Z: 0.7}, RotationAboutX(1.5))
	if _, ok := f.Apply(third, false); !ok {
		t.Error("pose after dropped baseline must be accepted")
	}
}

func TestFilterRejectsLargeTranslationJump(t *testing.T) {
	f := NewFilter(testFilterConfig())

	f.Apply(mustPose(t, r3.Vector{Z: 0.5}, Identity()), true)
	jump := mustPose(t, r3.Vector{X: 0.3, Z: 0.5}, Identity())
	if _, ok := f.Apply(jump, true); ok {
		t.Fatal("expected rejection for 0.3m jump with 0.15m limit")
	}
}

func TestFilterBlendsAcceptedPoses(t *testing.T) {
	cfg := testFilterConfig()
	f := NewFilter(cfg)

	old := mustPose(t, r3.Vector{Z: 0.5}, Identity())
	f.Apply(old, true)

	raw := mustPose(t, r3.Vector{X: 0.04, Z: 0.5}, RotationAboutX(0.2))
	got, ok := f.Apply(raw, true)
	if !ok {
		t.Fatal("expected acceptance of small jump")
	}

	// EMA: 0.25*0.04 + 0.75*0 = 0.01
	if math.Abs(got.Translation.X-0.01) > 1e-12 {
		t.Errorf("blended X = %v, want 0.01", got.Translation.X)
	}

	// SLERP at t=0.5 lands halfway along the 0.2 rad arc.
	if a := GeodesicAngle(old.Orientation, got.Orientation); math.Abs(a-0.1) > 1e-6 {
		t.Errorf("blended orientation %v rad from old, want 0.1", a)
	}

	checkOrthonormal(t, got.Orientation)

	// The blended pose, not the raw one, becomes the new baseline.
	if f.Last().Translation.X != got.Translation.X {
		t.Error("stored pose is not the blended pose")
	}
}

func TestFilterReset(t *testing.T) {
	f := NewFilter(testFilterConfig())
	f.Apply(mustPose(t, r3.Vector{Z: 0.5}, Identity()), false)
	f.Reset()
	if f.Last() != nil {
		t.Error("Reset did not clear the baseline")
	}
}

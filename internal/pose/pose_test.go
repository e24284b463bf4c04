package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

// checkOrthonormal asserts that a rotation has unit-length,
// pairwise-orthogonal columns and a positive determinant.
func checkOrthonormal(t *testing.T, r Rotation) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if n := r.Col(i).Norm(); math.Abs(n-1) > OrthoTol {
			t.Errorf("column %d norm = %v, want 1", i, n)
		}
		for j := i + 1; j < 3; j++ {
			if d := math.Abs(r.Col(i).Dot(r.Col(j))); d > OrthoTol {
				t.Errorf("columns %d,%d dot = %v, want 0", i, j, d)
			}
		}
	}
	if d := r.Det(); d < 0 {
		t.Errorf("determinant = %v, want +1", d)
	}
}

func TestNewRejectsReflection(t *testing.T) {
	// Orthonormal columns but det = -1.
	reflection := Rotation{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, -1},
	}
	if _, err := New(r3.Vector{}, reflection); !errors.Is(err, ErrNotRotation) {
		t.Fatalf("expected ErrNotRotation for reflection, got %v", err)
	}
}

func TestNewRejectsNonUnitColumns(t *testing.T) {
	scaled := Rotation{
		{2, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	if _, err := New(r3.Vector{}, scaled); !errors.Is(err, ErrNotRotation) {
		t.Fatalf("expected ErrNotRotation for scaled column, got %v", err)
	}
}

func TestNewRejectsSkewedColumns(t *testing.T) {
	s := 1 / math.Sqrt(2)
	skewed := Rotation{
		{1, s, 0},
		{0, s, 0},
		{0, 0, 1},
	}
	if _, err := New(r3.Vector{}, skewed); !errors.Is(err, ErrNotRotation) {
		t.Fatalf("expected ErrNotRotation for skewed columns, got %v", err)
	}
}

func TestNewAcceptsProperRotation(t *testing.T) {
	for _, angle := range []float64{0, 0.3, math.Pi / 2, 3} {
		p, err := New(r3.Vector{X: 0.1, Y: 0.2, Z: 0.5}, RotationAboutX(angle))
		if err != nil {
			t.Fatalf("New failed for rotation about X by %v: %v", angle, err)
		}
		checkOrthonormal(t, p.Orientation)
	}
}

func TestQuatRoundTrip(t *testing.T) {
	rotations := []Rotation{
		Identity(),
		RotationAboutX(0.7),
		RotationAboutX(math.Pi - 0.01),
		RotationAboutX(2.0).Mul(RotationFromAxes(
			r3.Vector{Y: 1}, r3.Vector{Z: 1}, r3.Vector{X: 1},
		)),
	}

	for _, r := range rotations {
		back := RotationFromQuat(r.Quat())
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if math.Abs(back[i][j]-r[i][j]) > 1e-9 {
					t.Fatalf("round trip mismatch at [%d][%d]: %v vs %v", i, j, back[i][j], r[i][j])
				}
			}
		}
	}
}

func TestGeodesicAngle(t *testing.T) {
	for _, angle := range []float64{0, 0.1, 0.5, 1.2, math.Pi / 2} {
		got := GeodesicAngle(Identity(), RotationAboutX(angle))
		if math.Abs(got-angle) > 1e-9 {
			t.Errorf("GeodesicAngle for %v rad rotation = %v", angle, got)
		}
	}
}

func TestSlerpEndpoints(t *testing.T) {
	old := Identity()
	next := RotationAboutX(0.9)

	atZero := Slerp(old, next, 0)
	if a := GeodesicAngle(atZero, old); a > 1e-9 {
		t.Errorf("Slerp(t=0) deviates from old by %v rad", a)
	}

	atOne := Slerp(old, next, 1)
	if a := GeodesicAngle(atOne, next); a > 1e-9 {
		t.Errorf("Slerp(t=1) deviates from new by %v rad", a)
	}
}

func TestSlerpProportional(t *testing.T) {
	old := Identity()
	total := 0.9
	next := RotationAboutX(total)

	mid := Slerp(old, next, 0.2)
	got := GeodesicAngle(old, mid)
	want := 0.2 * total
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("Slerp(t=0.2) angle from old = %v, want %v", got, want)
	}
	checkOrthonormal(t, mid)
}

func TestSlerpIdenticalOrientations(t *testing.T) {
	r := RotationAboutX(1.1)
	mid := Slerp(r, r, 0.5)
	if a := GeodesicAngle(mid, r); a > 1e-9 {
		t.Errorf("Slerp between identical orientations deviates by %v rad", a)
	}
}

func TestRotationApply(t *testing.T) {
	// Row-major convention: 90° about X maps (0,0,1) to (0,-1,0).
	r := RotationAboutX(math.Pi / 2)
	got := r.Apply(r3.Vector{Z: 1})
	want := r3.Vector{Y: -1}
	if got.Sub(want).Norm() > 1e-12 {
		t.Errorf("RotationAboutX(π/2)·(0,0,1) = %+v, want %+v", got, want)
	}
}

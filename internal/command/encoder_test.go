package command

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/golang/geo/r3"

	"handteleop/internal/pose"
)

func TestEncodePayloadlessCommands(t *testing.T) {
	e := NewEncoder(DefaultExtrinsic())

	if got := string(e.Encode(Command{Kind: Gripper})); got != "GRIPPER\n" {
		t.Errorf("Gripper encoded as %q", got)
	}
	if got := string(e.Encode(Command{Kind: Reset})); got != "RESET\n" {
		t.Errorf("Reset encoded as %q", got)
	}
}

func TestEncodePoseCommandGrammar(t *testing.T) {
	e := NewEncoder(DefaultExtrinsic())

	p, err := pose.New(r3.Vector{X: 0.1, Y: 0.2, Z: 0.5}, pose.RotationAboutX(0.3))
	if err != nil {
		t.Fatalf("pose: %v", err)
	}

	for _, kind := range []Kind{Start, Track, End} {
		line := strings.TrimSuffix(string(e.Encode(Command{Kind: kind, Pose: &p})), "\n")
		fields := strings.Fields(line)

		if len(fields) != 8 {
			t.Fatalf("%s: got %d fields, want 8: %q", kind.Tag(), len(fields), line)
		}
		if fields[0] != kind.Tag() {
			t.Errorf("tag = %q, want %q", fields[0], kind.Tag())
		}
		for _, f := range fields[1:] {
			if _, err := strconv.ParseFloat(f, 64); err != nil {
				t.Errorf("field %q is not a decimal value", f)
			}
		}
	}
}

func TestEncodeAppliesExtrinsic(t *testing.T) {
	// 90° about X maps camera (0,0,1) to robot (0,-1,0).
	e := NewEncoder(DefaultExtrinsic())

	p, err := pose.New(r3.Vector{Z: 1}, pose.Identity())
	if err != nil {
		t.Fatalf("pose: %v", err)
	}

	fields := strings.Fields(string(e.Encode(Command{Kind: Start, Pose: &p})))
	x, _ := strconv.ParseFloat(fields[1], 64)
	y, _ := strconv.ParseFloat(fields[2], 64)
	z, _ := strconv.ParseFloat(fields[3], 64)

	if math.Abs(x) > 1e-9 || math.Abs(y+1) > 1e-9 || math.Abs(z) > 1e-9 {
		t.Errorf("translation = (%v,%v,%v), want (0,-1,0)", x, y, z)
	}

	// The orientation quaternion is the extrinsic itself: 90° about X is
	// (cos45°, sin45°, 0, 0).
	qw, _ := strconv.ParseFloat(fields[4], 64)
	qx, _ := strconv.ParseFloat(fields[5], 64)
	want := math.Sqrt(2) / 2
	if math.Abs(qw-want) > 1e-6 || math.Abs(qx-want) > 1e-6 {
		t.Errorf("quaternion = (%v,%v,...), want (%v,%v,0,0)", qw, qx, want, want)
	}
}

func TestEncodeNilPoseFallsBackToBareTag(t *testing.T) {
	e := NewEncoder(DefaultExtrinsic())
	if got := string(e.Encode(Command{Kind: End})); got != "END\n" {
		t.Errorf("End with nil pose encoded as %q", got)
	}
}

func TestKindTags(t *testing.T) {
	tags := map[Kind]string{
		Start:   "START",
		Track:   "TRACK",
		End:     "END",
		Gripper: "GRIPPER",
		Reset:   "RESET",
	}
	for k, want := range tags {
		if got := k.Tag(); got != want {
			t.Errorf("Kind(%d).Tag() = %q, want %q", k, got, want)
		}
	}
}

package pipeline

import (
	"image"
	"log"
	"math"
	"time"

	"gocv.io/x/gocv"

	"handteleop/internal/capture"
	"handteleop/internal/classifier"
	"handteleop/internal/command"
	"handteleop/internal/gesture"
	"handteleop/internal/pose"
	"handteleop/internal/transport"
)

// Overlay is the per-frame payload handed to UI consumers: landmark points
// to draw, a short status line, and the accepted pose with intrinsics for
// axis visualization. Delivery is fire-and-forget.
type Overlay struct {
	Session   string               `json:"session"`
	Timestamp time.Time            `json:"timestamp"`
	Points    []classifier.Point2D `json:"points,omitempty"`
	Status    string               `json:"status"`
	Pose      *pose.Pose           `json:"pose,omitempty"`
	Intr      capture.Intrinsics   `json:"intrinsics"`
	Label     string               `json:"label,omitempty"`
}

// OverlayFunc receives overlay payloads. Implementations must not block the
// lane for long; there is no return value and no error path.
type OverlayFunc func(Overlay)

// Deps collects the collaborators of the worker lane.
type Deps struct {
	Classifier classifier.Classifier
	Estimator  pose.Estimator
	Filter     *pose.Filter
	Machine    *gesture.Machine
	Encoder    *command.Encoder
	Sender     transport.Sender
	Overlay    OverlayFunc
	Session    string
}

// Lane performs all per-frame processing: the two classifier calls, pose
// reconstruction and filtering, state machine stepping, encoding, and the
// transport handoff. All session-mutable state (filter baseline, gesture
// confidences, cooldowns) is owned here and mutated on no other goroutine.
type Lane struct {
	deps Deps
}

// NewLane creates a Lane from its collaborators.
func NewLane(deps Deps) *Lane {
	return &Lane{deps: deps}
}

// Process handles one frame end to end. Every failure degrades to "no
// command this frame": the machine still steps so confidences decay, and
// the lane returns normally so the scheduler can promote the next frame.
func (l *Lane) Process(f *capture.Frame) {
	defer f.Close()
	ts := f.Timestamp

	if !f.Intr.Valid() {
		l.step(classifier.LabelOther, nil, ts)
		l.notify(Overlay{Status: "invalid intrinsics", Timestamp: ts, Intr: f.Intr})
		return
	}

	lm, err := l.deps.Classifier.RecognizePose(f.Image, ts)
	if err != nil {
		// Classifier failure is indistinguishable from "no hand" here.
		l.step(classifier.LabelOther, nil, ts)
		l.notify(Overlay{Status: "no hand", Timestamp: ts, Intr: f.Intr})
		return
	}

	var filtered *pose.Pose
	raw, err := l.deps.Estimator.Estimate(lm, f.Depth, f.Intr)
	if err == nil {
		if p, ok := l.deps.Filter.Apply(raw, l.deps.Machine.Tracking()); ok {
			filtered = &p
		}
	} else {
		log.Printf("pose estimation: %v", err)
	}

	label := l.recognizeGesture(f, filtered, ts)

	cmd, ok := l.step(label, filtered, ts)
	status := "idle"
	if l.deps.Machine.Tracking() {
		status = "tracking"
	}
	if ok {
		status = cmd.Kind.Tag()
	}

	l.notify(Overlay{
		Timestamp: ts,
		Points:    lm.Points[:],
		Status:    status,
		Pose:      filtered,
		Intr:      f.Intr,
		Label:     label.String(),
	})
}

// recognizeGesture runs classifier call #2 on the image, rotated upright
// using the accepted pose when one exists. Any failure maps to LabelOther.
func (l *Lane) recognizeGesture(f *capture.Frame, p *pose.Pose, ts time.Time) classifier.Label {
	img := f.Image
	if img != nil && p != nil {
		if rotated, ok := rotateUpright(f.Image, *p); ok {
			defer rotated.Close()
			img = rotated
		}
	}

	label, _, err := l.deps.Classifier.RecognizeGesture(img, ts)
	if err != nil {
		log.Printf("gesture inference: %v", err)
		return classifier.LabelOther
	}
	return label
}

// step feeds the machine and pushes any derived command to the transport.
// Transport failures are logged and forgotten; the transport reconnects on
// its own.
func (l *Lane) step(label classifier.Label, p *pose.Pose, ts time.Time) (command.Command, bool) {
	cmd, ok := l.deps.Machine.Step(label, p, ts)
	if !ok {
		return command.Command{}, false
	}

	if err := l.deps.Sender.Send(l.deps.Encoder.Encode(cmd)); err != nil {
		log.Printf("send %s: %v", cmd.Kind.Tag(), err)
	}
	return cmd, true
}

func (l *Lane) notify(o Overlay) {
	if l.deps.Overlay == nil {
		return
	}
	o.Session = l.deps.Session
	l.deps.Overlay(o)
}

// rotateUpright rotates the image so the palm appears upright: the palm X
// axis (fingertip → wrist) is turned to point straight down the image.
func rotateUpright(img *gocv.Mat, p pose.Pose) (*gocv.Mat, bool) {
	x := p.Orientation.Col(0)
	if math.Hypot(x.X, x.Y) < 1e-9 {
		// Palm axis is along the optical axis; no in-plane roll to correct.
		return nil, false
	}

	// In-plane direction of the palm axis, in degrees.
	deg := math.Atan2(x.Y, x.X) * 180 / math.Pi

	center := image.Point{X: img.Cols() / 2, Y: img.Rows() / 2}
	rot := gocv.GetRotationMatrix2D(center, deg-90, 1.0)
	defer rot.Close()

	dst := gocv.NewMat()
	gocv.WarpAffine(*img, &dst, rot, image.Point{X: img.Cols(), Y: img.Rows()})
	return &dst, true
}

package classifier

import (
	"time"

	"gocv.io/x/gocv"
)

// Mock is a test implementation of the Classifier interface.
// It lets tests script the results of both inference calls.
type Mock struct {
	Landmarks    LandmarkSet
	PoseErr      error
	Label        Label
	Score        float64
	GestureErr   error
	PoseCalls    int
	GestureCalls int
}

// NewMock creates a Mock that reports no hand until configured.
func NewMock() *Mock {
	return &Mock{PoseErr: ErrNoHand}
}

// SetLandmarks sets the landmark set returned by RecognizePose and clears
// any configured pose error.
func (m *Mock) SetLandmarks(lm LandmarkSet) {
	m.Landmarks = lm
	m.PoseErr = nil
}

// SetGesture sets the label and score returned by RecognizeGesture.
func (m *Mock) SetGesture(label Label, score float64) {
	m.Label = label
	m.Score = score
	m.GestureErr = nil
}

func (m *Mock) RecognizePose(img *gocv.Mat, ts time.Time) (LandmarkSet, error) {
	m.PoseCalls++
	if m.PoseErr != nil {
		return LandmarkSet{}, m.PoseErr
	}
	return m.Landmarks, nil
}

func (m *Mock) RecognizeGesture(img *gocv.Mat, ts time.Time) (Label, float64, error) {
	m.GestureCalls++
	if m.GestureErr != nil {
		return LabelOther, 0, m.GestureErr
	}
	return m.Label, m.Score, nil
}

func (m *Mock) Close() error {
	return nil
}

// FlatPalmLandmarks returns a landmark set for an open hand facing the
// camera, centered in the image. Useful as a fixture for pose estimation
// tests together with a synthetic depth plane.
func FlatPalmLandmarks(handedness string) LandmarkSet {
	lm := LandmarkSet{
		Handedness: handedness,
		Score:      0.95,
	}

	// Wrist low in the image, middle finger pointing up.
	lm.Points[Wrist] = Point2D{X: 0.50, Y: 0.80}

	lm.Points[ThumbCMC] = Point2D{X: 0.57, Y: 0.76}
	lm.Points[ThumbMCP] = Point2D{X: 0.62, Y: 0.70}
	lm.Points[ThumbIP] = Point2D{X: 0.66, Y: 0.65}
	lm.Points[ThumbTip] = Point2D{X: 0.70, Y: 0.61}

	lm.Points[IndexMCP] = Point2D{X: 0.57, Y: 0.62}
	lm.Points[IndexPIP] = Point2D{X: 0.58, Y: 0.53}
	lm.Points[IndexDIP] = Point2D{X: 0.58, Y: 0.46}
	lm.Points[IndexTip] = Point2D{X: 0.58, Y: 0.40}

	lm.Points[MiddleMCP] = Point2D{X: 0.52, Y: 0.60}
	lm.Points[MiddlePIP] = Point2D{X: 0.52, Y: 0.50}
	lm.Points[MiddleDIP] = Point2D{X: 0.52, Y: 0.42}
	lm.Points[MiddleTip] = Point2D{X: 0.52, Y: 0.35}

	lm.Points[RingMCP] = Point2D{X: 0.47, Y: 0.62}
	lm.Points[RingPIP] = Point2D{X: 0.46, Y: 0.53}
	lm.Points[RingDIP] = Point2D{X: 0.46, Y: 0.46}
	lm.Points[RingTip] = Point2D{X: 0.45, Y: 0.40}

	lm.Points[PinkyMCP] = Point2D{X: 0.42, Y: 0.65}
	lm.Points[PinkyPIP] = Point2D{X: 0.41, Y: 0.58}
	lm.Points[PinkyDIP] = Point2D{X: 0.40, Y: 0.53}
	lm.Points[PinkyTip] = Point2D{X: 0.39, Y: 0.48}

	return lm
}

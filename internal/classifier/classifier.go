// Package classifier defines the interface to the external hand inference
// service and the types it exchanges with the pipeline.
package classifier

import (
	"time"

	"gocv.io/x/gocv"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point2D is a normalized image coordinate in [0,1]×[0,1].
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkSet holds the 21 hand keypoints from one pose inference call.
// It is consumed within a single pipeline pass and never stored.
type LandmarkSet struct {
	Points     [NumLandmarks]Point2D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Classifier is the opaque inference service consumed by the worker lane.
// Both calls run within the lane's logical turn; implementations may block.
type Classifier interface {
	// RecognizePose returns hand landmarks for the given image.
	RecognizePose(img *gocv.Mat, ts time.Time) (LandmarkSet, error)

	// RecognizeGesture returns a gesture label and score for an image that
	// has been rotated upright using the estimated palm orientation.
	RecognizeGesture(img *gocv.Mat, ts time.Time) (Label, float64, error)

	// Close releases any resources held by the classifier.
	Close() error
}

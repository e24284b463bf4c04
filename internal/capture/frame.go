// Package capture provides RGB-D frame acquisition for the teleoperation pipeline.
package capture

import (
	"math"
	"time"

	"gocv.io/x/gocv"
)

// Intrinsics holds the pinhole calibration parameters of the depth sensor.
type Intrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// Valid reports whether the intrinsics can be used for unprojection.
// Zero, negative, or NaN focal lengths make the pinhole model degenerate.
func (i Intrinsics) Valid() bool {
	if i.Fx <= 0 || i.Fy <= 0 {
		return false
	}
	if math.IsNaN(i.Fx) || math.IsNaN(i.Fy) || math.IsNaN(i.Cx) || math.IsNaN(i.Cy) {
		return false
	}
	return true
}

// DepthMap is a dense per-pixel depth image in meters.
type DepthMap struct {
	Width  int
	Height int
	Data   []float32
}

// NewDepthMap allocates a zero-filled depth map of the given size.
func NewDepthMap(width, height int) DepthMap {
	return DepthMap{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height),
	}
}

// At returns the depth sample at pixel (x, y) in meters.
// Out-of-range coordinates return NaN so callers can treat them like
// invalid sensor readings.
func (d DepthMap) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= d.Width || y >= d.Height {
		return math.NaN()
	}
	return float64(d.Data[y*d.Width+x])
}

// Set writes the depth sample at pixel (x, y). Out-of-range writes are ignored.
func (d DepthMap) Set(x, y int, meters float64) {
	if x < 0 || y < 0 || x >= d.Width || y >= d.Height {
		return
	}
	d.Data[y*d.Width+x] = float32(meters)
}

// Empty reports whether the map holds no samples.
func (d DepthMap) Empty() bool {
	return d.Width <= 0 || d.Height <= 0 || len(d.Data) == 0
}

// Frame is one synchronized color+depth capture. The scheduler owns a frame
// exclusively from submission until the worker lane finishes with it; the
// contents are never mutated after capture.
type Frame struct {
	Image     *gocv.Mat
	Depth     DepthMap
	Intr      Intrinsics
	Timestamp time.Time
}

// Close releases the underlying image buffer. Safe to call on frames
// without an image.
func (f *Frame) Close() {
	if f == nil || f.Image == nil {
		return
	}
	f.Image.Close()
	f.Image = nil
}

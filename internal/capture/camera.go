package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	// DefaultDepthScale converts raw 16-bit depth units (millimeters on
	// most consumer RGB-D sensors) into meters.
	DefaultDepthScale = 0.001
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Camera defines the interface for RGB-D capture implementations.
type Camera interface {
	Open() error
	Close() error

	// ReadFrame captures one synchronized color+depth frame.
	// The caller owns the returned frame and must Close it.
	ReadFrame() (*Frame, error)

	IsOpen() bool
}

// rgbdCamera captures color and depth streams from two video devices using GoCV.
type rgbdCamera struct {
	colorID    int
	depthID    int
	intr       Intrinsics
	depthScale float64

	mu      sync.Mutex
	color   *gocv.VideoCapture
	depth   *gocv.VideoCapture
	running bool
}

// NewRGBDCamera creates a Camera reading color frames from colorID and raw
// depth frames from depthID. The supplied intrinsics are attached to every
// captured frame. A depthScale <= 0 falls back to DefaultDepthScale.
func NewRGBDCamera(colorID, depthID int, intr Intrinsics, depthScale float64) Camera {
	if depthScale <= 0 {
		depthScale = DefaultDepthScale
	}
	return &rgbdCamera{
		colorID:    colorID,
		depthID:    depthID,
		intr:       intr,
		depthScale: depthScale,
	}
}

// Open opens both capture devices and fixes the resolution.
func (c *rgbdCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	color, err := gocv.OpenVideoCapture(c.colorID)
	if err != nil {
		return fmt.Errorf("open color device %d: %w", c.colorID, err)
	}
	color.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	color.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)

	depth, err := gocv.OpenVideoCapture(c.depthID)
	if err != nil {
		color.Close()
		return fmt.Errorf("open depth device %d: %w", c.depthID, err)
	}
	depth.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	depth.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)

	c.color = color
	c.depth = depth
	c.running = true

	return nil
}

// Close closes both devices and releases resources.
func (c *rgbdCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	var err error
	if c.color != nil {
		err = c.color.Close()
		c.color = nil
	}
	if c.depth != nil {
		if cerr := c.depth.Close(); err == nil {
			err = cerr
		}
		c.depth = nil
	}
	c.running = false

	return err
}

// ReadFrame reads one color frame and one depth frame and pairs them.
func (c *rgbdCamera) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.color == nil || c.depth == nil {
		return nil, ErrCameraNotOpen
	}

	img := gocv.NewMat()
	if ok := c.color.Read(&img); !ok {
		img.Close()
		return nil, errors.New("failed to read color frame")
	}
	if img.Empty() {
		img.Close()
		return nil, errors.New("captured color frame is empty")
	}

	raw := gocv.NewMat()
	if ok := c.depth.Read(&raw); !ok {
		raw.Close()
		img.Close()
		return nil, errors.New("failed to read depth frame")
	}
	depth := c.convertDepth(&raw)
	raw.Close()

	return &Frame{
		Image:     &img,
		Depth:     depth,
		Intr:      c.intr,
		Timestamp: time.Now(),
	}, nil
}

// convertDepth turns a raw 16-bit depth Mat into a metric DepthMap.
// Zero raw samples (no return) stay zero and are skipped downstream.
func (c *rgbdCamera) convertDepth(raw *gocv.Mat) DepthMap {
	rows, cols := raw.Rows(), raw.Cols()
	d := NewDepthMap(cols, rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			d.Set(x, y, float64(raw.GetShortAt(y, x))*c.depthScale)
		}
	}
	return d
}

// IsOpen reports whether both devices are currently open.
func (c *rgbdCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

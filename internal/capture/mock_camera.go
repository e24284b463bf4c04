package capture

import (
	"fmt"
	"sync"
	"time"
)

// MockCamera plays back pre-built frames for testing.
type MockCamera struct {
	frames  []*Frame
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
}

func NewMockCamera(frames []*Frame, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, fmt.Errorf("no more frames")
		}
	}

	// Copy the frame so the caller can Close it without touching the source.
	src := c.frames[c.index]
	c.index++

	out := &Frame{
		Depth:     src.Depth,
		Intr:      src.Intr,
		Timestamp: time.Now(),
	}
	if src.Image != nil {
		img := src.Image.Clone()
		out.Image = &img
	}

	return out, nil
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence.
func (c *MockCamera) SetFrames(frames []*Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// Reset restarts playback from the beginning.
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}

// Package pipeline drives frames from the capture source through the
// perception stages without blocking capture or growing a backlog.
package pipeline

import (
	"sync"

	"handteleop/internal/capture"
)

// Scheduler accepts frames at sensor rate and feeds them to a single serial
// worker lane. At most one frame is pending at any time: a new submission
// replaces (and closes) any frame already waiting, so memory stays O(1) no
// matter how far processing falls behind.
type Scheduler struct {
	process func(*capture.Frame)

	mu      sync.Mutex
	pending *capture.Frame

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewScheduler creates a Scheduler that hands frames to process on the
// worker lane. process runs one frame at a time and owns the frame.
func NewScheduler(process func(*capture.Frame)) *Scheduler {
	return &Scheduler{
		process: process,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker lane.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop shuts the lane down after the in-flight frame (if any) finishes and
// releases any still-pending frame.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done

	s.mu.Lock()
	if s.pending != nil {
		s.pending.Close()
		s.pending = nil
	}
	s.mu.Unlock()
}

// Submit offers a frame to the lane. It never blocks: if a frame is already
// pending it is replaced, last write wins. The scheduler owns the frame from
// this point on.
func (s *Scheduler) Submit(f *capture.Frame) {
	s.mu.Lock()
	if s.pending != nil {
		s.pending.Close()
	}
	s.pending = f
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
		// Lane is already scheduled to look at the slot.
	}
}

// run is the worker lane. On each wakeup it drains the pending slot,
// processing promoted frames back to back; a failure inside process is the
// stage's own problem and never stalls promotion.
func (s *Scheduler) run() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		for {
			f := s.claim()
			if f == nil {
				break
			}
			s.process(f)
		}
	}
}

// claim atomically takes the pending frame, if any.
func (s *Scheduler) claim() *capture.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.pending
	s.pending = nil
	return f
}

// pendingFrame exposes the slot for tests.
func (s *Scheduler) pendingFrame() *capture.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Package app wires the capture source, the scheduler, and the pipeline
// stages into one teleoperation session.
package app

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"handteleop/internal/capture"
	"handteleop/internal/classifier"
	"handteleop/internal/command"
	"handteleop/internal/config"
	"handteleop/internal/gesture"
	"handteleop/internal/pipeline"
	"handteleop/internal/pose"
	"handteleop/internal/transport"
)

// App owns the teleoperation session: one capture loop pushing frames into
// the scheduler, one worker lane doing everything else.
type App struct {
	cfg     config.Config
	session string

	camera     capture.Camera
	classifier classifier.Classifier
	sender     transport.Sender
	scheduler  *pipeline.Scheduler

	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}
}

// Options allows callers to substitute collaborators, primarily for tests.
// Nil fields are built from the configuration.
type Options struct {
	Camera     capture.Camera
	Classifier classifier.Classifier
	Sender     transport.Sender
	Overlay    pipeline.OverlayFunc
}

// New assembles an App from configuration.
func New(cfg config.Config, opts Options) (*App, error) {
	session := uuid.NewString()

	cam := opts.Camera
	if cam == nil {
		intr := capture.Intrinsics{
			Fx: cfg.Camera.Fx, Fy: cfg.Camera.Fy,
			Cx: cfg.Camera.Cx, Cy: cfg.Camera.Cy,
		}
		cam = capture.NewRGBDCamera(cfg.Camera.ColorDevice, cfg.Camera.DepthDevice, intr, cfg.Camera.DepthScale)
	}

	cls := opts.Classifier
	if cls == nil {
		svc, err := classifier.NewService()
		if err != nil {
			return nil, err
		}
		cls = svc
	}

	sender := opts.Sender
	if sender == nil {
		sender = transport.NewTCPClient(cfg.Robot.Address)
	}

	var estimator pose.Estimator
	switch cfg.Estimator.Algorithm {
	case "plane_fit":
		estimator = pose.NewPlaneFit(cfg.Estimator.PlaneEpsilonM)
	default:
		estimator = pose.NewClosedForm()
	}

	lane := pipeline.NewLane(pipeline.Deps{
		Classifier: cls,
		Estimator:  estimator,
		Filter: pose.NewFilter(pose.FilterConfig{
			MaxAngle:    cfg.Filter.MaxAngleRad(),
			MaxDistance: cfg.Filter.MaxDistanceM,
			SlerpT:      cfg.Filter.SlerpT,
			EMAAlpha:    cfg.Filter.EMAAlpha,
		}),
		Machine: gesture.NewMachine(gesture.Config{
			IncrementStep:    cfg.Gesture.IncrementStep,
			DecrementStep:    cfg.Gesture.DecrementStep,
			CommandThreshold: cfg.Gesture.CommandThreshold,
			GripperThreshold: cfg.Gesture.GripperThreshold,
			GripperCooldown:  cfg.Gesture.GripperCooldown(),
			ResetCooldown:    cfg.Gesture.ResetCooldown(),
		}),
		Encoder: command.NewEncoder(pose.RotationAboutX(cfg.Robot.ExtrinsicRollRad())),
		Sender:  sender,
		Overlay: opts.Overlay,
		Session: session,
	})

	a := &App{
		cfg:        cfg,
		session:    session,
		camera:     cam,
		classifier: cls,
		sender:     sender,
		scheduler:  pipeline.NewScheduler(lane.Process),
		enabled:    true,
	}
	return a, nil
}

// Session returns the session identifier.
func (a *App) Session() string {
	return a.session
}

// Camera returns the capture source, e.g. for the debug stream endpoint.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Sender returns the command transport.
func (a *App) Sender() transport.Sender {
	return a.sender
}

// SetEnabled pauses or resumes frame submission. The transport and
// classifier stay up; disabled frames are simply dropped at capture.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether frames are being submitted.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Start opens the camera and begins the capture loop and worker lane.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.scheduler.Start()

	a.stopCh = make(chan struct{})
	go a.captureLoop(a.stopCh)

	log.Printf("session %s: pipeline started", a.session)
	return nil
}

// Stop halts the capture loop, drains the scheduler, and releases
// resources.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh == nil {
		return
	}
	close(a.stopCh)
	a.stopCh = nil

	a.scheduler.Stop()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if err := a.classifier.Close(); err != nil {
		log.Printf("Error closing classifier: %v", err)
	}
	if err := a.sender.Close(); err != nil {
		log.Printf("Error closing transport: %v", err)
	}

	log.Printf("session %s: pipeline stopped", a.session)
}

// captureLoop reads frames at the configured sensor rate and submits them.
// Submission never blocks; if the lane is behind, the scheduler's pending
// slot collapses the backlog to the newest frame.
func (a *App) captureLoop(stop <-chan struct{}) {
	interval := time.Second / time.Duration(a.cfg.Camera.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			a.scheduler.Submit(frame)
		}
	}
}

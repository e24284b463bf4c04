package classifier

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrNoHand is returned when the pose model found no hand in the image.
var ErrNoHand = errors.New("no hand detected")

// Request kind bytes understood by the Python inference service.
const (
	reqPose    = 'P'
	reqGesture = 'G'
)

// Service implements Classifier using a Python MediaPipe subprocess.
// Requests are a kind byte plus a length-prefixed JPEG; responses are
// one JSON line each.
type Service struct {
	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	idleTimer *time.Timer
}

// NewService creates a subprocess-backed classifier.
// The Python process is started lazily on first inference.
func NewService() (*Service, error) {
	if findServiceScript() == "" {
		return nil, fmt.Errorf("hand_service.py not found")
	}
	return &Service{}, nil
}

// RecognizePose sends the image for landmark inference and returns the
// first detected hand.
func (s *Service) RecognizePose(img *gocv.Mat, ts time.Time) (LandmarkSet, error) {
	line, err := s.roundTrip(reqPose, img)
	if err != nil {
		return LandmarkSet{}, err
	}

	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return LandmarkSet{}, fmt.Errorf("parse pose response: %w", err)
	}
	if len(response.Hands) == 0 {
		return LandmarkSet{}, ErrNoHand
	}

	return response.Hands[0].toLandmarkSet(), nil
}

// RecognizeGesture sends the reoriented image for gesture inference.
func (s *Service) RecognizeGesture(img *gocv.Mat, ts time.Time) (Label, float64, error) {
	line, err := s.roundTrip(reqGesture, img)
	if err != nil {
		return LabelOther, 0, err
	}

	var response struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return LabelOther, 0, fmt.Errorf("parse gesture response: %w", err)
	}

	return ParseLabel(response.Label), response.Score, nil
}

// roundTrip encodes the image as JPEG, writes one request, and reads one
// JSON line back.
func (s *Service) roundTrip(kind byte, img *gocv.Mat) ([]byte, error) {
	if img == nil || img.Empty() {
		return nil, errors.New("empty image")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *img)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	// Write kind byte + length (4 bytes big-endian) + data.
	header := make([]byte, 5)
	header[0] = kind
	binary.BigEndian.PutUint32(header[1:], uint32(len(data)))

	if _, err := s.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := s.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := s.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	s.resetIdleTimer()
	return line, nil
}

// Close shuts down the Python process.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *Service) ensureStarted() error {
	if s.started {
		return nil
	}

	scriptPath := findServiceScript()
	if scriptPath == "" {
		return fmt.Errorf("hand_service.py not found")
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	s.cmd = exec.Command(pythonPath, scriptPath)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start inference service: %w", err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true

	return nil
}

func (s *Service) shutdown() error {
	if !s.started {
		return nil
	}

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}

func (s *Service) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(30*time.Second, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.shutdown()
	})
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/hand_service.py",
		"../scripts/hand_service.py",
		filepath.Join(execDir, "scripts/hand_service.py"),
		filepath.Join(os.Getenv("HOME"), ".handteleop/scripts/hand_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".handteleop/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []Point2D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

func (h jsonHand) toLandmarkSet() LandmarkSet {
	lm := LandmarkSet{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = h.Points[i]
	}
	return lm
}

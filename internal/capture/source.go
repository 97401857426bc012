package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/airpointer/internal/detector"
)

// ErrSourceClosed is returned by Next after Close.
var ErrSourceClosed = errors.New("landmark source is closed")

// Source yields the hands detected in successive frames.
//
// Next blocks until the next frame is available or the source's own timeout
// expires. An empty slice means no hand was visible. Any error is fatal to
// the consumer's run.
type Source interface {
	Next() ([]detector.HandLandmarks, error)
	Close() error
}

// Opener opens a fresh Source for one control run.
type Opener func() (Source, error)

// SourceConfig describes the camera-backed landmark source.
type SourceConfig struct {
	Camera CameraConfig
	// Mirror flips frames horizontally so moving the hand right moves the cursor right.
	Mirror bool
}

// CameraSource runs every camera frame through a hand detector.
type CameraSource struct {
	camera   Camera
	detector detector.Detector
	mirror   bool
	closed   bool
}

// OpenCameraSource opens cam and wraps it with det.
func OpenCameraSource(cam Camera, det detector.Detector, mirror bool) (*CameraSource, error) {
	if det == nil {
		return nil, errors.New("no hand detector configured")
	}
	if err := cam.Open(); err != nil {
		return nil, err
	}
	return &CameraSource{camera: cam, detector: det, mirror: mirror}, nil
}

// NewCameraOpener returns an Opener creating a camera source per run.
func NewCameraOpener(cfg SourceConfig, det detector.Detector) Opener {
	return func() (Source, error) {
		return OpenCameraSource(NewCamera(cfg.Camera), det, cfg.Mirror)
	}
}

// Next reads one frame and returns the hands found in it.
func (s *CameraSource) Next() ([]detector.HandLandmarks, error) {
	if s.closed {
		return nil, ErrSourceClosed
	}

	frame, err := s.camera.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	defer frame.Close()

	if s.mirror {
		gocv.Flip(*frame, frame, 1)
	}

	hands, err := s.detector.Detect(frame)
	if err != nil {
		return nil, fmt.Errorf("detect hands: %w", err)
	}
	return hands, nil
}

// Close releases the camera and stops the detector.
func (s *CameraSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	camErr := s.camera.Close()
	detErr := s.detector.Close()
	return errors.Join(camErr, detErr)
}

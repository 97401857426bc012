package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ayusman/airpointer/internal/detector"
)

// ErrEndOfReplay is returned when a non-looping replay runs out of frames.
var ErrEndOfReplay = errors.New("end of recorded session")

// Recording is a captured landmark session, one entry per frame.
type Recording struct {
	Frames []RecordedFrame `json:"frames"`
}

// RecordedFrame holds the hands detected in one frame.
type RecordedFrame struct {
	Hands []detector.HandLandmarks `json:"hands"`
}

// LoadRecording reads a JSON recording from disk.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return ParseRecording(data)
}

// ParseRecording decodes a JSON recording.
func ParseRecording(data []byte) (*Recording, error) {
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse recording: %w", err)
	}
	if len(rec.Frames) == 0 {
		return nil, errors.New("recording has no frames")
	}
	return &rec, nil
}

// ReplaySource plays back recorded frames as if they came from a camera.
type ReplaySource struct {
	mu       sync.Mutex
	frames   []RecordedFrame
	index    int
	loop     bool
	interval time.Duration
	closed   bool
}

// NewReplaySource creates a source over frames. A positive interval paces
// Next like a camera running at 1/interval FPS.
func NewReplaySource(frames []RecordedFrame, loop bool, interval time.Duration) *ReplaySource {
	return &ReplaySource{
		frames:   frames,
		loop:     loop,
		interval: interval,
	}
}

// NewReplayOpener returns an Opener that restarts the recording on every run.
func NewReplayOpener(rec *Recording, loop bool, interval time.Duration) Opener {
	return func() (Source, error) {
		return NewReplaySource(rec.Frames, loop, interval), nil
	}
}

// Next returns the hands of the next recorded frame.
func (s *ReplaySource) Next() ([]detector.HandLandmarks, error) {
	if s.interval > 0 {
		time.Sleep(s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}
	if s.index >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return nil, ErrEndOfReplay
		}
		s.index = 0
	}

	frame := s.frames[s.index]
	s.index++
	return frame.Hands, nil
}

// Close marks the source closed.
func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *ReplaySource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

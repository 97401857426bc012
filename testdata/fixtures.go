// Package testdata provides recorded landmark sessions for tests.
package testdata

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/airpointer/internal/capture"
)

//go:embed sessions/*.json
var sessionsFS embed.FS

// SweepPinch is a session of an open hand sweeping right along y=0.5
// (x = 0.1 to 0.5), one frame without a hand, three pinched frames at
// x=0.5 and a final open-hand frame.
const SweepPinch = "sweep_pinch"

// LoadSession loads a recorded session by name.
func LoadSession(name string) (*capture.Recording, error) {
	data, err := sessionsFS.ReadFile("sessions/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", name, err)
	}

	rec, err := capture.ParseRecording(data)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", name, err)
	}

	return rec, nil
}

// Sessions lists the names of the embedded sessions.
func Sessions() ([]string, error) {
	entries, err := sessionsFS.ReadDir("sessions")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}

	return names, nil
}

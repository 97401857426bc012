package detector

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
	"strconv"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/airpointer/internal/log"
)

// ScriptName is the file name of the python landmark service.
const ScriptName = "hand_service.py"

// idleShutdown is how long the python process may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

var (
	// ErrScriptNotFound is returned when the landmark service script cannot be located.
	ErrScriptNotFound = errors.New(ScriptName + " not found")
	// ErrDetectTimeout is returned when the landmark service does not answer in time.
	ErrDetectTimeout = errors.New("landmark service timed out")
	// ErrNotReady is returned when the landmark service exits or answers before it is ready.
	ErrNotReady = errors.New("landmark service did not report ready")
)

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Once the model is loaded the service writes a single {"ready": true} line.
// Frames are then sent as a 4-byte big-endian length followed by JPEG bytes
// and the service answers with one JSON line per frame.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := findScript(config.ScriptDirs)
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if config.StartupTimeout <= 0 {
		config.StartupTimeout = DefaultConfig().StartupTimeout
	}
	if config.ResponseTimeout <= 0 {
		config.ResponseTimeout = DefaultConfig().ResponseTimeout
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.readLine(d.config.ResponseTimeout)
	if err != nil {
		return nil, err
	}

	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}

	d.resetIdleTimer()

	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// readLine waits up to timeout for one line, killing the service if it stalls.
func (d *MediaPipeDetector) readLine(timeout time.Duration) (string, error) {
	type result struct {
		line string
		err  error
	}

	ch := make(chan result, 1)
	reader := d.stdout
	go func() {
		line, err := reader.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("read response: %w", res.err)
		}
		return res.line, nil
	case <-timer.C:
		if d.cmd != nil && d.cmd.Process != nil {
			if err := d.cmd.Process.Kill(); err != nil {
				log.Warn("failed to kill stalled landmark service", "error", err)
			}
		}
		if err := d.shutdown(); err != nil {
			log.Debug("landmark service shutdown after timeout", "error", err)
		}
		return "", fmt.Errorf("%w after %s", ErrDetectTimeout, timeout)
	}
}

// awaitReady blocks until the service reports that its model is loaded.
func (d *MediaPipeDetector) awaitReady() error {
	line, err := d.readLine(d.config.StartupTimeout)
	if err != nil {
		if !errors.Is(err, ErrDetectTimeout) {
			if serr := d.shutdown(); serr != nil {
				log.Debug("landmark service exited during startup", "error", serr)
			}
		}
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	var hello struct {
		Ready bool `json:"ready"`
	}
	if err := json.Unmarshal([]byte(line), &hello); err != nil || !hello.Ready {
		if serr := d.shutdown(); serr != nil {
			log.Debug("landmark service shutdown after bad handshake", "error", serr)
		}
		return fmt.Errorf("%w: unexpected line %q", ErrNotReady, strings.TrimSpace(line))
	}
	return nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := findVenvPython(d.config.ScriptDirs)
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.scriptPath,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start landmark service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	began := time.Now()
	if err := d.awaitReady(); err != nil {
		return err
	}

	log.Debug("landmark service started",
		"python", pythonPath,
		"script", d.scriptPath,
		"startup", time.Since(began),
	)
	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			log.Debug("landmark service idle shutdown", "error", err)
		}
	})
}

// searchDirs lists the directories probed for the script and the virtualenv.
func searchDirs(extra []string) []string {
	dirs := append([]string{}, extra...)
	dirs = append(dirs, ".", "..")

	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	return dirs
}

func findScript(extra []string) string {
	for _, dir := range searchDirs(extra) {
		path := filepath.Join(dir, "scripts", ScriptName)
		if _, err := os.Stat(path); err == nil {
			if absPath, err := filepath.Abs(path); err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython(extra []string) string {
	for _, dir := range searchDirs(extra) {
		path := filepath.Join(dir, "venv", "bin", "python")
		if _, err := os.Stat(path); err == nil {
			if absPath, err := filepath.Abs(path); err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}

package cursor

import (
	"sync"
	"sync/atomic"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/airpointer/internal/log"
)

// Button identifies a mouse button.
type Button string

// Mouse buttons.
const (
	ButtonLeft  Button = "left"
	ButtonRight Button = "right"
)

// Actuator moves the OS cursor and emits clicks.
type Actuator interface {
	Move(x, y int)
	Click(b Button)
}

// RobotActuator drives the real cursor through robotgo.
type RobotActuator struct{}

// NewRobotActuator creates an Actuator backed by robotgo.
func NewRobotActuator() *RobotActuator {
	return &RobotActuator{}
}

// Move sets the absolute cursor position.
func (RobotActuator) Move(x, y int) {
	robotgo.Move(x, y)
}

// Click presses and releases the given button once.
func (RobotActuator) Click(b Button) {
	robotgo.Click(string(b))
}

// ScreenSize returns the size of the main display.
func ScreenSize() Size {
	w, h := robotgo.GetScreenSize()
	return Size{Width: w, Height: h}
}

// Event is one actuator call captured by a Recorder.
type Event struct {
	Kind   string // "move" or "click"
	Point  Point
	Button Button
}

// LogActuator is the dry-run Actuator. It logs each call at debug level and
// keeps only counters and the last position, so long sessions stay bounded.
type LogActuator struct {
	moves  atomic.Int64
	clicks atomic.Int64
	last   atomic.Pointer[Point]
}

// NewLogActuator creates a LogActuator.
func NewLogActuator() *LogActuator {
	return &LogActuator{}
}

// Move logs a position update.
func (a *LogActuator) Move(x, y int) {
	p := Point{X: x, Y: y}
	a.last.Store(&p)
	a.moves.Add(1)
	log.Debug("dry-run move", "x", x, "y", y)
}

// Click logs a click.
func (a *LogActuator) Click(b Button) {
	n := a.clicks.Add(1)
	log.Debug("dry-run click", "button", b, "count", n)
}

// Counts returns how many moves and clicks were seen.
func (a *LogActuator) Counts() (moves, clicks int64) {
	return a.moves.Load(), a.clicks.Load()
}

// Last returns the most recent position, if any.
func (a *LogActuator) Last() (Point, bool) {
	p := a.last.Load()
	if p == nil {
		return Point{}, false
	}
	return *p, true
}

// Recorder is an Actuator that records every call instead of touching the OS.
// It keeps the full history and is meant for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Move records a position update.
func (r *Recorder) Move(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: "move", Point: Point{X: x, Y: y}})
}

// Click records a click.
func (r *Recorder) Click(b Button) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: "click", Button: b})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Moves returns the recorded positions in order.
func (r *Recorder) Moves() []Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	var moves []Point
	for _, e := range r.events {
		if e.Kind == "move" {
			moves = append(moves, e.Point)
		}
	}
	return moves
}

// Clicks returns how many clicks were recorded.
func (r *Recorder) Clicks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == "click" {
			n++
		}
	}
	return n
}

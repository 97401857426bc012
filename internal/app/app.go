// Package app runs the control loop that turns hand landmarks into cursor motion and clicks.
package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/airpointer/internal/capture"
	"github.com/ayusman/airpointer/internal/config"
	"github.com/ayusman/airpointer/internal/cursor"
	"github.com/ayusman/airpointer/internal/detector"
	"github.com/ayusman/airpointer/internal/log"
	"github.com/ayusman/airpointer/internal/store"
)

// Errors returned by the control surface and recorded for failed runs.
var (
	ErrAlreadyRunning   = errors.New("control is already running")
	ErrNotRunning       = errors.New("control is not running")
	ErrSourceOpen       = errors.New("failed to open landmark source")
	ErrFrameAcquisition = errors.New("frame acquisition failed")
	ErrStopTimeout      = errors.New("control loop did not stop in time")
)

// State is the lifecycle state of the control loop.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Label is the short status text shown to the user: ACTIVE while the
// loop owns the cursor, IDLE otherwise.
func (s State) Label() string {
	if s == StateIdle {
		return "IDLE"
	}
	return "ACTIVE"
}

// Tuning holds the pipeline parameters captured at the start of each run.
type Tuning struct {
	Alpha           float64 `json:"alpha"`
	PinchThreshold  float64 `json:"pinch_threshold"`
	ClickCooldownMs int     `json:"click_cooldown_ms"`
	ClickMode       string  `json:"click_mode"`
}

// TuningFromConfig extracts the tuning fields of cfg.
func TuningFromConfig(cfg config.Config) Tuning {
	return Tuning{
		Alpha:           cfg.Alpha,
		PinchThreshold:  cfg.PinchThreshold,
		ClickCooldownMs: cfg.ClickCooldownMs,
		ClickMode:       cfg.ClickMode,
	}
}

// Apply copies t onto cfg.
func (t Tuning) Apply(cfg *config.Config) {
	cfg.Alpha = t.Alpha
	cfg.PinchThreshold = t.PinchThreshold
	cfg.ClickCooldownMs = t.ClickCooldownMs
	cfg.ClickMode = t.ClickMode
}

// Validate checks the tuning values with the same rules as the config file.
func (t Tuning) Validate() error {
	cfg := config.Default()
	t.Apply(&cfg)
	return cfg.Validate()
}

// ClickCooldown returns the cooldown as a duration.
func (t Tuning) ClickCooldown() time.Duration {
	return time.Duration(t.ClickCooldownMs) * time.Millisecond
}

// Config holds the collaborators of an App.
type Config struct {
	// Open acquires a landmark source at the start of every run.
	Open capture.Opener
	// Actuator receives cursor moves and clicks.
	Actuator cursor.Actuator
	// Screen is the display size, queried once at startup.
	Screen cursor.Size
	// Tuning is the initial pipeline tuning.
	Tuning Tuning
	// JoinTimeout bounds how long Stop waits for the loop to exit.
	JoinTimeout time.Duration
	// Store records run history when set.
	Store *store.Store
	// Clock returns the frame timestamp. Defaults to time.Now.
	Clock func() time.Time
}

// Status is a point-in-time view of the controller.
type Status struct {
	State       State         `json:"state"`
	Label       string        `json:"label"`
	RunID       string        `json:"run_id,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	Frames      int64         `json:"frames"`
	HandFrames  int64         `json:"hand_frames"`
	Clicks      int64         `json:"clicks"`
	HandVisible bool          `json:"hand_visible"`
	Cursor      *cursor.Point `json:"cursor,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	Tuning      Tuning        `json:"tuning"`
	// RunTuning is the tuning captured by the active run.
	RunTuning   *Tuning       `json:"run_tuning,omitempty"`
}

// TuningPending reports whether the next run will use a tuning different
// from the active one.
func (s Status) TuningPending() bool {
	return s.RunTuning != nil && *s.RunTuning != s.Tuning
}

// App owns the control loop and its start/stop state machine.
//
// Start and Stop are serialized; the loop goroutine is the only writer of
// the smoothing and debounce state, the counters and the hand snapshot.
type App struct {
	config Config

	mu sync.Mutex // serializes Start and Stop

	tuningMu sync.RWMutex
	tuning   Tuning

	state    atomic.Int32
	current  atomic.Pointer[run]
	snapshot atomic.Pointer[detector.HandLandmarks]

	errMu   sync.Mutex
	lastErr error

	listenersMu sync.RWMutex
	listeners   []func(State, error)
	notifyMu    sync.Mutex // delivers transitions one at a time, in order
}

// New creates an idle App.
func New(cfg Config) *App {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = time.Duration(config.DefaultJoinTimeoutMs) * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Actuator == nil {
		cfg.Actuator = cursor.NewLogActuator()
	}
	if cfg.Tuning == (Tuning{}) {
		cfg.Tuning = TuningFromConfig(config.Default())
	}
	return &App{
		config: cfg,
		tuning: cfg.Tuning,
	}
}

// State returns the current lifecycle state.
func (a *App) State() State {
	return State(a.state.Load())
}

// LatestHand returns the hand seen in the most recent frame, if any.
func (a *App) LatestHand() (detector.HandLandmarks, bool) {
	h := a.snapshot.Load()
	if h == nil {
		return detector.HandLandmarks{}, false
	}
	return *h, true
}

// LastError returns the error that ended the most recent run or start attempt.
func (a *App) LastError() error {
	a.errMu.Lock()
	defer a.errMu.Unlock()
	return a.lastErr
}

func (a *App) setLastError(err error) {
	a.errMu.Lock()
	a.lastErr = err
	a.errMu.Unlock()
}

// RunID returns the id of the current or most recent run.
func (a *App) RunID() string {
	if r := a.current.Load(); r != nil {
		return r.id
	}
	return ""
}

// Tuning returns the tuning used by the next run.
func (a *App) Tuning() Tuning {
	a.tuningMu.RLock()
	defer a.tuningMu.RUnlock()
	return a.tuning
}

// SetTuning replaces the tuning. It applies from the next Start.
func (a *App) SetTuning(t Tuning) error {
	_, err := a.UpdateTuning(func(cur *Tuning) { *cur = t })
	return err
}

// UpdateTuning applies fn to a copy of the tuning and stores the result if
// it is valid. The read and the write happen under one lock, so concurrent
// updates are not lost. It returns the tuning in effect afterwards.
func (a *App) UpdateTuning(fn func(*Tuning)) (Tuning, error) {
	a.tuningMu.Lock()
	defer a.tuningMu.Unlock()

	t := a.tuning
	fn(&t)
	if err := t.Validate(); err != nil {
		return a.tuning, err
	}
	a.tuning = t
	return t, nil
}

// OnStateChange registers fn to be called after every transition to
// Running or Idle. The error is the run's failure, if any.
//
// Transitions are delivered one at a time and in order; the Idle of a run
// that was already superseded by a newer Start is not delivered. fn must not
// call Start or Stop.
func (a *App) OnStateChange(fn func(State, error)) {
	a.listenersMu.Lock()
	defer a.listenersMu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) notify(r *run, s State, err error) {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	if a.current.Load() != r {
		log.Debug("dropping stale state notification", "run", r.id, "state", s)
		return
	}

	a.listenersMu.RLock()
	listeners := append([]func(State, error)(nil), a.listeners...)
	a.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(s, err)
	}
}

// Status returns a snapshot of the controller and the current run.
func (a *App) Status() Status {
	st := Status{
		State:  a.State(),
		Tuning: a.Tuning(),
	}
	st.Label = st.State.Label()
	if err := a.LastError(); err != nil {
		st.LastError = err.Error()
	}
	_, st.HandVisible = a.LatestHand()

	r := a.current.Load()
	if r == nil {
		return st
	}
	st.RunID = r.id
	if st.State != StateIdle {
		started := r.started
		st.StartedAt = &started
		runTuning := r.tuning
		st.RunTuning = &runTuning
	}
	st.Frames = r.frames.Load()
	st.HandFrames = r.handFrames.Load()
	st.Clicks = r.clickCount.Load()
	st.Cursor = r.cursor.Load()
	return st
}

// Start opens the landmark source and launches the control loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s := a.State(); s != StateIdle {
		return fmt.Errorf("%w (state %s)", ErrAlreadyRunning, s)
	}
	if a.config.Open == nil {
		return fmt.Errorf("%w: no source configured", ErrSourceOpen)
	}

	r := newRun(a.Tuning(), a.config.Clock())

	src, err := a.config.Open()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSourceOpen, err)
		a.setLastError(err)
		log.Error("control start failed", "error", err)
		return err
	}

	a.setLastError(nil)
	a.snapshot.Store(nil)
	a.recordStart(r)
	a.current.Store(r)
	a.state.Store(int32(StateRunning))

	log.Info("control started",
		"run", r.id,
		"alpha", r.tuning.Alpha,
		"pinch_threshold", r.tuning.PinchThreshold,
		"click_cooldown_ms", r.tuning.ClickCooldownMs,
		"click_mode", r.tuning.ClickMode,
	)
	a.notify(r, StateRunning, nil)

	go a.runPipeline(r, src)
	return nil
}

// Stop asks the control loop to exit and waits up to the join timeout.
// On timeout ErrStopTimeout is returned; the loop still finishes on its
// own and the state reaches Idle once it does.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := a.current.Load()
	if r == nil || !a.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrNotRunning
	}

	r.requestStop()

	timer := time.NewTimer(a.config.JoinTimeout)
	defer timer.Stop()

	select {
	case <-r.done:
		return nil
	case <-timer.C:
		log.Warn("control loop did not stop in time", "run", r.id, "timeout", a.config.JoinTimeout)
		return ErrStopTimeout
	}
}

// Wait blocks until the current run, if any, has fully finished.
func (a *App) Wait() {
	if r := a.current.Load(); r != nil {
		<-r.done
	}
}

func (a *App) recordStart(r *run) {
	if a.config.Store == nil {
		return
	}
	err := a.config.Store.Runs().Create(&store.Run{
		ID:              r.id,
		StartedAt:       r.started,
		Alpha:           r.tuning.Alpha,
		PinchThreshold:  r.tuning.PinchThreshold,
		ClickCooldownMs: r.tuning.ClickCooldownMs,
		ClickMode:       r.tuning.ClickMode,
	})
	if err != nil {
		log.Warn("failed to record run start", "run", r.id, "error", err)
		return
	}
	r.persisted = true
}

func (a *App) recordFinish(r *run, reason string, runErr error) {
	if a.config.Store == nil || !r.persisted {
		return
	}
	stopped := a.config.Clock()
	rec := &store.Run{
		ID:         r.id,
		StoppedAt:  &stopped,
		StopReason: reason,
		Frames:     int(r.frames.Load()),
		HandFrames: int(r.handFrames.Load()),
		Clicks:     int(r.clickCount.Load()),
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if err := a.config.Store.Runs().Finish(rec, r.clicks); err != nil {
		log.Warn("failed to record run finish", "run", r.id, "error", err)
	}
}

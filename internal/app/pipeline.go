package app

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/airpointer/internal/capture"
	"github.com/ayusman/airpointer/internal/cursor"
	"github.com/ayusman/airpointer/internal/detector"
	"github.com/ayusman/airpointer/internal/gesture"
	"github.com/ayusman/airpointer/internal/log"
	"github.com/ayusman/airpointer/internal/store"
)

// run is the state of one Start/Stop cycle. Smoothing and debounce state
// are created fresh here, so every run begins from an unfiltered cursor
// and an empty click history.
type run struct {
	id        string
	started   time.Time
	tuning    Tuning
	persisted bool

	smoother   *cursor.Smoother
	classifier *gesture.PinchClassifier
	debouncer  *gesture.ClickDebouncer

	frames     atomic.Int64
	handFrames atomic.Int64
	clickCount atomic.Int64
	cursor     atomic.Pointer[cursor.Point]
	clicks     []store.Click // loop-owned, read after done

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newRun(t Tuning, now time.Time) *run {
	r := &run{
		id:         uuid.New().String(),
		started:    now,
		tuning:     t,
		smoother:   cursor.NewSmoother(t.Alpha),
		classifier: gesture.NewPinchClassifier(t.PinchThreshold),
		debouncer:  gesture.NewClickDebouncer(gesture.ClickMode(t.ClickMode), t.ClickCooldown()),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	r.smoother.Reset()
	r.debouncer.Reset()
	return r
}

func (r *run) requestStop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *run) stopRequested() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// runPipeline is the per-frame loop of one run.
//
// Each iteration:
// 1. Check for a stop request
// 2. Acquire the hands of the next frame (any error ends the run)
// 3. Take the first hand only and publish it as the latest snapshot
// 4. Map the index fingertip to the screen, smooth it and move the cursor
// 5. Classify the pinch and let the debouncer decide whether to click
//
// The source is closed and the state returns to Idle on every exit path.
func (a *App) runPipeline(r *run, src capture.Source) {
	reason := store.StopReasonRequested
	var runErr error

	defer func() {
		a.finishRun(r, src, reason, runErr)
	}()

	for {
		if r.stopRequested() {
			return
		}

		hands, err := src.Next()
		if err != nil {
			// Sources may fail once closed or interrupted by a stop.
			if r.stopRequested() {
				return
			}
			reason = store.StopReasonSourceFailure
			runErr = fmt.Errorf("%w: %w", ErrFrameAcquisition, err)
			return
		}

		a.processFrame(r, hands, a.config.Clock())
	}
}

// processFrame applies one frame of hands to the cursor.
func (a *App) processFrame(r *run, hands []detector.HandLandmarks, now time.Time) {
	r.frames.Add(1)

	if len(hands) == 0 {
		a.snapshot.Store(nil)
		return
	}

	hand := hands[0]
	r.handFrames.Add(1)
	a.snapshot.Store(&hand)

	raw := cursor.Map(hand.IndexTip(), a.config.Screen)
	pos := r.smoother.Smooth(raw)
	a.config.Actuator.Move(pos.X, pos.Y)
	r.cursor.Store(&pos)

	if r.debouncer.MaybeClick(r.classifier.IsPinch(&hand), now) {
		a.config.Actuator.Click(cursor.ButtonLeft)
		r.clicks = append(r.clicks, store.Click{X: pos.X, Y: pos.Y, ClickedAt: now})
		r.clickCount.Add(1)
		log.Debug("click", "run", r.id, "x", pos.X, "y", pos.Y)
	}
}

func (a *App) finishRun(r *run, src capture.Source, reason string, runErr error) {
	if err := src.Close(); err != nil {
		log.Warn("failed to close landmark source", "run", r.id, "error", err)
	}
	a.snapshot.Store(nil)

	if runErr != nil {
		a.setLastError(runErr)
		log.Error("control run failed", "run", r.id, "error", runErr)
	}

	a.recordFinish(r, reason, runErr)

	a.state.Store(int32(StateIdle))
	close(r.done)

	log.Info("control stopped",
		"run", r.id,
		"reason", reason,
		"frames", r.frames.Load(),
		"hand_frames", r.handFrames.Load(),
		"clicks", r.clickCount.Load(),
	)
	a.notify(r, StateIdle, runErr)
}

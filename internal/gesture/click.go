package gesture

import "time"

// DefaultClickCooldown is the minimum interval between two emitted clicks.
const DefaultClickCooldown = 300 * time.Millisecond

// ClickMode selects how a held pinch is turned into clicks.
type ClickMode string

const (
	// ClickModeEdge fires once when a pinch begins. The pinch has to be
	// released before another click can fire.
	ClickModeEdge ClickMode = "edge"
	// ClickModeRepeat fires on every pinched frame once the cooldown has
	// elapsed, so a held pinch clicks at the cooldown cadence.
	ClickModeRepeat ClickMode = "repeat"
)

// ClickDebouncer decides when a pinch becomes a click.
//
// It compares timestamps instead of sleeping, so the frame loop keeps
// acquiring frames and moving the cursor during the cooldown window.
// Not safe for concurrent use; the control loop owns it.
type ClickDebouncer struct {
	mode      ClickMode
	cooldown  time.Duration
	lastClick time.Time
	clicked   bool
	wasPinch  bool
}

// NewClickDebouncer creates a debouncer. Unknown modes fall back to edge.
func NewClickDebouncer(mode ClickMode, cooldown time.Duration) *ClickDebouncer {
	if mode != ClickModeRepeat {
		mode = ClickModeEdge
	}
	if cooldown < 0 {
		cooldown = 0
	}
	return &ClickDebouncer{mode: mode, cooldown: cooldown}
}

// Mode returns the click mode.
func (d *ClickDebouncer) Mode() ClickMode {
	return d.mode
}

// Cooldown returns the minimum click interval.
func (d *ClickDebouncer) Cooldown() time.Duration {
	return d.cooldown
}

// MaybeClick reports whether a click should be emitted for this frame and
// records it if so. More than the cooldown must have elapsed since the
// previous click.
func (d *ClickDebouncer) MaybeClick(pinch bool, now time.Time) bool {
	rising := pinch && !d.wasPinch
	d.wasPinch = pinch

	if !pinch {
		return false
	}
	if d.mode == ClickModeEdge && !rising {
		return false
	}
	if d.clicked && now.Sub(d.lastClick) <= d.cooldown {
		return false
	}

	d.lastClick = now
	d.clicked = true
	return true
}

// Reset forgets the last click and pinch state.
func (d *ClickDebouncer) Reset() {
	d.lastClick = time.Time{}
	d.clicked = false
	d.wasPinch = false
}

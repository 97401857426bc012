package cursor

import "math"

// Smoother is a first-order low-pass (exponential moving average) filter
// over screen coordinates.
//
// Alpha is the weight of the newest sample. Lower values give a steadier
// cursor but more lag: a step input only closes a (1-alpha) fraction of the
// remaining gap per frame. Values around 0.1-0.3 suit a 15-30 FPS camera;
// alpha = 1 disables smoothing entirely.
//
// A Smoother is not safe for concurrent use; the control loop owns it.
type Smoother struct {
	alpha       float64
	prevX       float64
	prevY       float64
	initialized bool
}

// NewSmoother creates a Smoother with the given alpha, clamped to (0, 1].
func NewSmoother(alpha float64) *Smoother {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &Smoother{alpha: alpha}
}

// Alpha returns the smoothing coefficient.
func (s *Smoother) Alpha() float64 {
	return s.alpha
}

// Smooth filters one raw sample. The first sample after a reset is passed
// through unchanged so the cursor does not glide in from the origin.
func (s *Smoother) Smooth(raw Point) Point {
	if !s.initialized {
		s.prevX, s.prevY = float64(raw.X), float64(raw.Y)
		s.initialized = true
		return raw
	}

	x := math.Round(s.alpha*float64(raw.X) + (1-s.alpha)*s.prevX)
	y := math.Round(s.alpha*float64(raw.Y) + (1-s.alpha)*s.prevY)

	s.prevX, s.prevY = x, y
	return Point{X: int(x), Y: int(y)}
}

// Reset returns the filter to the uninitialized state.
func (s *Smoother) Reset() {
	s.prevX, s.prevY = 0, 0
	s.initialized = false
}

// Initialized reports whether a sample has been seen since the last reset.
func (s *Smoother) Initialized() bool {
	return s.initialized
}

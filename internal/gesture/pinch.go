// Package gesture classifies hand poses and turns them into click decisions.
package gesture

import "github.com/ayusman/airpointer/internal/detector"

// DefaultPinchThreshold is the thumb-index distance, in normalized camera
// units, below which a hand counts as pinching. It depends on camera field of
// view and hand distance; 0.040-0.050 works for a webcam at arm's length.
const DefaultPinchThreshold = 0.045

// PinchClassifier detects the thumb-tip/index-tip pinch used as the click trigger.
type PinchClassifier struct {
	threshold float64
}

// NewPinchClassifier creates a classifier. Non-positive thresholds fall back to the default.
func NewPinchClassifier(threshold float64) *PinchClassifier {
	if threshold <= 0 {
		threshold = DefaultPinchThreshold
	}
	return &PinchClassifier{threshold: threshold}
}

// Threshold returns the pinch distance threshold.
func (c *PinchClassifier) Threshold() float64 {
	return c.threshold
}

// IsPinch reports whether the thumb and index tips are strictly closer than
// the threshold. A nil hand (nothing detected) is never a pinch.
func (c *PinchClassifier) IsPinch(hand *detector.HandLandmarks) bool {
	if hand == nil {
		return false
	}
	return c.IsPinchPoints(hand.ThumbTip(), hand.IndexTip())
}

// IsPinchPoints applies the threshold to two arbitrary landmarks.
func (c *PinchClassifier) IsPinchPoints(a, b detector.Point3D) bool {
	return detector.Distance(a, b) < c.threshold
}

// Package cursor turns normalized landmark positions into screen cursor motion.
package cursor

import (
	"math"

	"github.com/ayusman/airpointer/internal/detector"
)

// Size is the screen geometry in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point is an absolute pixel coordinate on the screen.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Map projects a normalized landmark onto the screen.
// Coordinates are rounded and then clamped to [0, W-1] x [0, H-1], so
// tracking noise outside [0,1] pins the cursor to the screen edge.
func Map(p detector.Point3D, screen Size) Point {
	return Point{
		X: toPixels(p.X, screen.Width),
		Y: toPixels(p.Y, screen.Height),
	}
}

func toPixels(norm float64, span int) int {
	if span <= 1 || math.IsNaN(norm) {
		return 0
	}
	return clamp(int(math.Round(norm*float64(span))), 0, span-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package cursor

import "testing"

func TestSmoother_FirstSamplePassesThrough(t *testing.T) {
	s := NewSmoother(0.2)

	raw := Point{X: 731, Y: 402}
	if got := s.Smooth(raw); got != raw {
		t.Errorf("first Smooth() = %+v, want %+v", got, raw)
	}
	if !s.Initialized() {
		t.Error("expected smoother to be initialized after first sample")
	}
}

func TestSmoother_Sequence(t *testing.T) {
	s := NewSmoother(0.2)

	inputs := []int{100, 200, 300, 400, 500}
	want := []int{100, 120, 156, 205, 264}

	for i, x := range inputs {
		got := s.Smooth(Point{X: x, Y: 100})
		if got.X != want[i] {
			t.Errorf("step %d: Smooth().X = %d, want %d", i, got.X, want[i])
		}
		if got.Y != 100 {
			t.Errorf("step %d: Smooth().Y = %d, want 100", i, got.Y)
		}
	}
}

func TestSmoother_ConvergesMonotonically(t *testing.T) {
	s := NewSmoother(0.2)
	s.Smooth(Point{X: 0, Y: 1000})

	target := Point{X: 800, Y: 200}
	prev := Point{X: 0, Y: 1000}

	for i := 0; i < 60; i++ {
		got := s.Smooth(target)
		if got.X < prev.X || got.X > target.X {
			t.Fatalf("step %d: X moved from %d to %d, not toward %d", i, prev.X, got.X, target.X)
		}
		if got.Y > prev.Y || got.Y < target.Y {
			t.Fatalf("step %d: Y moved from %d to %d, not toward %d", i, prev.Y, got.Y, target.Y)
		}
		prev = got
	}

	if diff := target.X - prev.X; diff > 2 {
		t.Errorf("X did not converge: %d away after 60 steps", diff)
	}
	if diff := prev.Y - target.Y; diff > 2 {
		t.Errorf("Y did not converge: %d away after 60 steps", diff)
	}
}

func TestSmoother_AlphaOneIsIdentity(t *testing.T) {
	s := NewSmoother(1)

	for _, p := range []Point{{10, 10}, {500, 20}, {3, 999}, {3, 999}, {0, 0}} {
		if got := s.Smooth(p); got != p {
			t.Errorf("Smooth(%+v) with alpha=1 = %+v", p, got)
		}
	}
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(0.2)
	s.Smooth(Point{X: 100, Y: 100})
	s.Smooth(Point{X: 900, Y: 900})

	s.Reset()
	if s.Initialized() {
		t.Error("expected smoother to be uninitialized after Reset")
	}

	raw := Point{X: 500, Y: 40}
	if got := s.Smooth(raw); got != raw {
		t.Errorf("Smooth() after Reset = %+v, want %+v", got, raw)
	}
}

func TestNewSmoother_InvalidAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -0.5, 1.5} {
		if got := NewSmoother(alpha).Alpha(); got != 1 {
			t.Errorf("NewSmoother(%v).Alpha() = %v, want 1", alpha, got)
		}
	}
}

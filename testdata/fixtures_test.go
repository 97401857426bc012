package testdata

import "testing"

func TestSessions(t *testing.T) {
	names, err := Sessions()
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected embedded sessions")
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			rec, err := LoadSession(name)
			if err != nil {
				t.Fatalf("LoadSession() error = %v", err)
			}
			if len(rec.Frames) == 0 {
				t.Error("expected frames")
			}
		})
	}
}

func TestLoadSession_SweepPinch(t *testing.T) {
	rec, err := LoadSession(SweepPinch)
	if err != nil {
		t.Fatalf("LoadSession() error = %v", err)
	}
	if len(rec.Frames) != 10 {
		t.Fatalf("frames = %d, want 10", len(rec.Frames))
	}
	if len(rec.Frames[5].Hands) != 0 {
		t.Error("frame 5 should have no hand")
	}
	tip := rec.Frames[0].Hands[0].IndexTip()
	if tip.X != 0.1 || tip.Y != 0.5 {
		t.Errorf("first index tip = %+v, want (0.1, 0.5)", tip)
	}
}

func TestLoadSession_Missing(t *testing.T) {
	if _, err := LoadSession("nope"); err == nil {
		t.Error("expected error for a missing session")
	}
}

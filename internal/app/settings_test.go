package app

import (
	"path/filepath"
	"testing"

	"github.com/ayusman/airpointer/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadTuning_Empty(t *testing.T) {
	s := newTestStore(t)

	got, err := LoadTuning(s, defaultTuning())
	if err != nil {
		t.Fatalf("LoadTuning() error = %v", err)
	}
	if got != defaultTuning() {
		t.Errorf("LoadTuning() = %+v, want base", got)
	}
}

func TestSaveAndLoadTuning(t *testing.T) {
	s := newTestStore(t)
	want := Tuning{Alpha: 0.15, PinchThreshold: 0.03, ClickCooldownMs: 450, ClickMode: "repeat"}

	if err := SaveTuning(s, want); err != nil {
		t.Fatalf("SaveTuning() error = %v", err)
	}

	got, err := LoadTuning(s, defaultTuning())
	if err != nil {
		t.Fatalf("LoadTuning() error = %v", err)
	}
	if got != want {
		t.Errorf("LoadTuning() = %+v, want %+v", got, want)
	}
}

func TestLoadTuning_Partial(t *testing.T) {
	s := newTestStore(t)
	if err := s.Settings().Set(SettingAlpha, "0.5"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := LoadTuning(s, defaultTuning())
	if err != nil {
		t.Fatalf("LoadTuning() error = %v", err)
	}
	want := defaultTuning()
	want.Alpha = 0.5
	if got != want {
		t.Errorf("LoadTuning() = %+v, want %+v", got, want)
	}
}

func TestLoadTuning_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"alpha not a number", SettingAlpha, "smooth"},
		{"alpha out of range", SettingAlpha, "1.5"},
		{"cooldown not an int", SettingClickCooldownMs, "0.3s"},
		{"unknown click mode", SettingClickMode, "double"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			if err := s.Settings().Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, err := LoadTuning(s, defaultTuning())
			if err == nil {
				t.Fatal("LoadTuning() should fail")
			}
			if got != defaultTuning() {
				t.Errorf("LoadTuning() = %+v, want base on error", got)
			}
		})
	}
}

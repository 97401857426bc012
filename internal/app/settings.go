package app

import (
	"fmt"
	"strconv"

	"github.com/ayusman/airpointer/internal/store"
)

// Settings keys holding the persisted tuning.
const (
	SettingAlpha           = "alpha"
	SettingPinchThreshold  = "pinch_threshold"
	SettingClickCooldownMs = "click_cooldown_ms"
	SettingClickMode       = "click_mode"
)

// LoadTuning overlays the tuning persisted in s onto base.
// Keys that were never saved keep their base value.
func LoadTuning(s *store.Store, base Tuning) (Tuning, error) {
	values, err := s.Settings().All()
	if err != nil {
		return base, err
	}

	t := base
	if v, ok := values[SettingAlpha]; ok {
		if t.Alpha, err = strconv.ParseFloat(v, 64); err != nil {
			return base, fmt.Errorf("invalid stored %s %q: %w", SettingAlpha, v, err)
		}
	}
	if v, ok := values[SettingPinchThreshold]; ok {
		if t.PinchThreshold, err = strconv.ParseFloat(v, 64); err != nil {
			return base, fmt.Errorf("invalid stored %s %q: %w", SettingPinchThreshold, v, err)
		}
	}
	if v, ok := values[SettingClickCooldownMs]; ok {
		if t.ClickCooldownMs, err = strconv.Atoi(v); err != nil {
			return base, fmt.Errorf("invalid stored %s %q: %w", SettingClickCooldownMs, v, err)
		}
	}
	if v, ok := values[SettingClickMode]; ok {
		t.ClickMode = v
	}

	if err := t.Validate(); err != nil {
		return base, fmt.Errorf("invalid stored tuning: %w", err)
	}
	return t, nil
}

// SaveTuning persists t in s.
func SaveTuning(s *store.Store, t Tuning) error {
	return s.Settings().SetMany(map[string]string{
		SettingAlpha:           strconv.FormatFloat(t.Alpha, 'g', -1, 64),
		SettingPinchThreshold:  strconv.FormatFloat(t.PinchThreshold, 'g', -1, 64),
		SettingClickCooldownMs: strconv.Itoa(t.ClickCooldownMs),
		SettingClickMode:       t.ClickMode,
	})
}

// Package config provides airpointer configuration, TOML parsing and XDG paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Click modes understood by the debouncer.
const (
	ClickModeEdge   = "edge"
	ClickModeRepeat = "repeat"
)

// Defaults for the control pipeline.
const (
	DefaultAlpha           = 0.2
	DefaultPinchThreshold  = 0.045
	DefaultClickCooldownMs = 300
	DefaultCameraIndex     = 0
	DefaultFrameWidth      = 640
	DefaultFrameHeight     = 480
	DefaultJoinTimeoutMs   = 1000
	DefaultStartupTimeoutS = 30
	DefaultListenAddr      = "127.0.0.1:8080"
	DefaultLogLevel        = "info"
)

// Config holds every tunable of the application.
type Config struct {
	Alpha           float64 `toml:"alpha"`
	PinchThreshold  float64 `toml:"pinch_threshold"`
	ClickCooldownMs int     `toml:"click_cooldown_ms"`
	ClickMode       string  `toml:"click_mode"`

	CameraDeviceIndex int  `toml:"camera_device_index"`
	FrameWidth        int  `toml:"frame_width"`
	FrameHeight       int  `toml:"frame_height"`
	Mirror            bool `toml:"mirror"`
	// DetectorStartupS bounds how long the landmark service may take to load its model.
	DetectorStartupS  int  `toml:"detector_startup_timeout_s"`

	JoinTimeoutMs int    `toml:"join_timeout_ms"`
	ListenAddr    string `toml:"listen_addr"`
	LogLevel      string `toml:"log_level"`
}

// Default returns a Config populated with the default values.
func Default() Config {
	return Config{
		Alpha:             DefaultAlpha,
		PinchThreshold:    DefaultPinchThreshold,
		ClickCooldownMs:   DefaultClickCooldownMs,
		ClickMode:         ClickModeEdge,
		CameraDeviceIndex: DefaultCameraIndex,
		FrameWidth:        DefaultFrameWidth,
		FrameHeight:       DefaultFrameHeight,
		Mirror:            true,
		DetectorStartupS:  DefaultStartupTimeoutS,
		JoinTimeoutMs:     DefaultJoinTimeoutMs,
		ListenAddr:        DefaultListenAddr,
		LogLevel:          DefaultLogLevel,
	}
}

// ClickCooldown returns the cooldown as a duration.
func (c Config) ClickCooldown() time.Duration {
	return time.Duration(c.ClickCooldownMs) * time.Millisecond
}

// JoinTimeout returns the stop join timeout as a duration.
func (c Config) JoinTimeout() time.Duration {
	return time.Duration(c.JoinTimeoutMs) * time.Millisecond
}

// DetectorStartup returns the landmark service startup timeout as a duration.
func (c Config) DetectorStartup() time.Duration {
	return time.Duration(c.DetectorStartupS) * time.Second
}

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	var errs []error
	if c.Alpha <= 0 || c.Alpha > 1 {
		errs = append(errs, fmt.Errorf("alpha must be in (0, 1], got %v", c.Alpha))
	}
	if c.PinchThreshold <= 0 {
		errs = append(errs, fmt.Errorf("pinch_threshold must be positive, got %v", c.PinchThreshold))
	}
	if c.ClickCooldownMs < 0 {
		errs = append(errs, fmt.Errorf("click_cooldown_ms must not be negative, got %d", c.ClickCooldownMs))
	}
	if c.ClickMode != ClickModeEdge && c.ClickMode != ClickModeRepeat {
		errs = append(errs, fmt.Errorf("click_mode must be %q or %q, got %q", ClickModeEdge, ClickModeRepeat, c.ClickMode))
	}
	if c.CameraDeviceIndex < 0 {
		errs = append(errs, fmt.Errorf("camera_device_index must not be negative, got %d", c.CameraDeviceIndex))
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		errs = append(errs, fmt.Errorf("frame size must be positive, got %dx%d", c.FrameWidth, c.FrameHeight))
	}
	if c.DetectorStartupS <= 0 {
		errs = append(errs, fmt.Errorf("detector_startup_timeout_s must be positive, got %d", c.DetectorStartupS))
	}
	if c.JoinTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("join_timeout_ms must be positive, got %d", c.JoinTimeoutMs))
	}
	return errors.Join(errs...)
}

// Load reads a TOML config from path on top of the defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to stat config: %w", err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.ClickCooldown() != 300*time.Millisecond {
		t.Errorf("ClickCooldown() = %v, want 300ms", cfg.ClickCooldown())
	}
	if cfg.JoinTimeout() != time.Second {
		t.Errorf("JoinTimeout() = %v, want 1s", cfg.JoinTimeout())
	}
	if !cfg.Mirror {
		t.Error("mirror should default to true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"alpha zero", func(c *Config) { c.Alpha = 0 }, "alpha"},
		{"alpha above one", func(c *Config) { c.Alpha = 1.5 }, "alpha"},
		{"alpha one is allowed", func(c *Config) { c.Alpha = 1 }, ""},
		{"negative threshold", func(c *Config) { c.PinchThreshold = -0.1 }, "pinch_threshold"},
		{"negative cooldown", func(c *Config) { c.ClickCooldownMs = -1 }, "click_cooldown_ms"},
		{"unknown click mode", func(c *Config) { c.ClickMode = "double" }, "click_mode"},
		{"repeat click mode", func(c *Config) { c.ClickMode = ClickModeRepeat }, ""},
		{"negative camera", func(c *Config) { c.CameraDeviceIndex = -1 }, "camera_device_index"},
		{"zero frame width", func(c *Config) { c.FrameWidth = 0 }, "frame size"},
		{"zero join timeout", func(c *Config) { c.JoinTimeoutMs = 0 }, "join_timeout_ms"},
		{"zero detector startup", func(c *Config) { c.DetectorStartupS = 0 }, "detector_startup_timeout_s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg != Default() {
			t.Errorf("Load() = %+v, want defaults", cfg)
		}
	})

	t.Run("empty path is an error", func(t *testing.T) {
		if _, err := Load(""); err == nil {
			t.Error("expected error for empty path")
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		body := "alpha = 0.15\nclick_mode = \"repeat\"\ncamera_device_index = 1\nmirror = false\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Alpha != 0.15 {
			t.Errorf("Alpha = %v, want 0.15", cfg.Alpha)
		}
		if cfg.ClickMode != ClickModeRepeat {
			t.Errorf("ClickMode = %q, want repeat", cfg.ClickMode)
		}
		if cfg.CameraDeviceIndex != 1 {
			t.Errorf("CameraDeviceIndex = %d, want 1", cfg.CameraDeviceIndex)
		}
		if cfg.Mirror {
			t.Error("Mirror should be false")
		}
		if cfg.PinchThreshold != DefaultPinchThreshold {
			t.Errorf("PinchThreshold = %v, want default", cfg.PinchThreshold)
		}
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("alpha = = 1"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")

	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "airpointer", "config.toml") {
		t.Errorf("DefaultConfigPath() = %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "airpointer", "airpointer.db") {
		t.Errorf("DefaultDBPath() = %s", got)
	}
}

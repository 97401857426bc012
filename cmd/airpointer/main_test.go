package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/airpointer/internal/app"
	"github.com/ayusman/airpointer/internal/config"
	"github.com/ayusman/airpointer/internal/store"
)

func TestDefaultConfigTemplate_DecodesToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != config.Default() {
		t.Errorf("commented template should decode to defaults, got %+v", cfg)
	}

	// every key in the template must be a real config key once uncommented
	var lines []string
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		line = strings.TrimPrefix(line, "# ")
		if strings.Contains(line, " = ") {
			lines = append(lines, line)
		}
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err = config.Load(path)
	if err != nil {
		t.Fatalf("Load() uncommented error = %v", err)
	}
	if cfg != config.Default() {
		t.Errorf("uncommented template should decode to defaults, got %+v", cfg)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "alpha = 0.3\npinch_threshold = 0.05\nclick_mode = \"repeat\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--config", path, "--alpha", "0.1", "--camera", "2"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Alpha != 0.1 {
		t.Errorf("Alpha = %v, want flag value 0.1", cfg.Alpha)
	}
	if cfg.PinchThreshold != 0.05 {
		t.Errorf("PinchThreshold = %v, want file value 0.05", cfg.PinchThreshold)
	}
	if cfg.ClickMode != "repeat" {
		t.Errorf("ClickMode = %q, want file value repeat", cfg.ClickMode)
	}
	if cfg.CameraDeviceIndex != 2 {
		t.Errorf("CameraDeviceIndex = %d, want 2", cfg.CameraDeviceIndex)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cmd := newRootCmd()
	path := filepath.Join(t.TempDir(), "missing.toml")
	if err := cmd.ParseFlags([]string{"--config", path, "--click-mode", "double"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	if _, err := loadConfig(cmd); err == nil {
		t.Error("loadConfig() should reject an unknown click mode")
	}
}

func TestResolveTuning_Precedence(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	saved := app.Tuning{Alpha: 0.5, PinchThreshold: 0.03, ClickCooldownMs: 400, ClickMode: "repeat"}
	if err := app.SaveTuning(st, saved); err != nil {
		t.Fatalf("SaveTuning() error = %v", err)
	}

	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--cooldown", "150"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	got := resolveTuning(cmd, config.Default(), st)
	want := saved
	want.ClickCooldownMs = 150
	if got != want {
		t.Errorf("resolveTuning() = %+v, want %+v", got, want)
	}
}

func TestRunsCmd(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	t.Run("empty history", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"runs"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !strings.Contains(out.String(), "no runs recorded yet") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("lists runs", func(t *testing.T) {
		st, err := openStore()
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		started := time.Now().Add(-time.Minute)
		run := &store.Run{ID: "run-1", StartedAt: started, Alpha: 0.2, PinchThreshold: 0.045, ClickCooldownMs: 300, ClickMode: "edge"}
		if err := st.Runs().Create(run); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		stopped := started.Add(30 * time.Second)
		run.StoppedAt = &stopped
		run.StopReason = store.StopReasonRequested
		run.Frames = 900
		if err := st.Runs().Finish(run, nil); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}
		st.Close()

		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"runs", "--limit", "5"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		for _, want := range []string{"run-1", "30s", "900", "requested", "edge"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, out.String())
			}
		}
	})
}

func TestConfigCmd_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airpointer", "config.toml")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if strings.TrimSpace(out.String()) != path {
		t.Errorf("output = %q, want %q", out.String(), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if !strings.Contains(string(data), "click_mode") {
		t.Error("config file should contain the template")
	}
}

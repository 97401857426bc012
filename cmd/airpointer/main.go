// Package main provides the CLI entrypoint for airpointer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/airpointer/internal/app"
	"github.com/ayusman/airpointer/internal/capture"
	"github.com/ayusman/airpointer/internal/config"
	"github.com/ayusman/airpointer/internal/cursor"
	"github.com/ayusman/airpointer/internal/detector"
	"github.com/ayusman/airpointer/internal/log"
	"github.com/ayusman/airpointer/internal/server"
	"github.com/ayusman/airpointer/internal/store"
	"github.com/ayusman/airpointer/internal/tray"
)

const (
	defaultRunsLimit = 20
	replayInterval   = 33 * time.Millisecond
	dryRunWidth      = 1920
	dryRunHeight     = 1080
)

var (
	configPath string
	cameraIdx  int
	alpha      float64
	threshold  float64
	cooldownMs int
	clickMode  string
	listenAddr string
	logLevel   string
	headless   bool
	autoStart  bool
	dryRun     bool
	replayPath string
	staticDir  string

	runsLimit int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.Default()

	rootCmd := &cobra.Command{
		Use:           "airpointer",
		Short:         "Control the cursor with hand gestures",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRootCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaults.LogLevel, "log level (debug, info, warn, error)")

	rootCmd.Flags().IntVar(&cameraIdx, "camera", defaults.CameraDeviceIndex, "camera device index")
	rootCmd.Flags().Float64Var(&alpha, "alpha", defaults.Alpha, "smoothing factor in (0, 1]; lower is smoother")
	rootCmd.Flags().Float64Var(&threshold, "threshold", defaults.PinchThreshold, "pinch distance threshold")
	rootCmd.Flags().IntVar(&cooldownMs, "cooldown", defaults.ClickCooldownMs, "minimum milliseconds between clicks")
	rootCmd.Flags().StringVar(&clickMode, "click-mode", defaults.ClickMode, "click mode (edge, repeat)")
	rootCmd.Flags().StringVar(&listenAddr, "addr", defaults.ListenAddr, "HTTP listen address")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run without the system tray")
	rootCmd.Flags().BoolVar(&autoStart, "start", false, "start cursor control immediately")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "record cursor actions instead of moving the cursor")
	rootCmd.Flags().StringVar(&replayPath, "replay", "", "replay a recorded session file instead of the camera")
	rootCmd.Flags().StringVar(&staticDir, "web", "", "directory of dashboard files to serve")

	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadConfig reads the config file and lets changed flags override it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	applyInt(cmd, "camera", &cfg.CameraDeviceIndex, cameraIdx)
	applyFloat(cmd, "alpha", &cfg.Alpha, alpha)
	applyFloat(cmd, "threshold", &cfg.PinchThreshold, threshold)
	applyInt(cmd, "cooldown", &cfg.ClickCooldownMs, cooldownMs)
	applyString(cmd, "click-mode", &cfg.ClickMode, clickMode)
	applyString(cmd, "addr", &cfg.ListenAddr, listenAddr)
	applyString(cmd, "log-level", &cfg.LogLevel, logLevel)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// resolveTuning layers file values, then persisted settings, then changed flags.
func resolveTuning(cmd *cobra.Command, cfg config.Config, st *store.Store) app.Tuning {
	tuning := app.TuningFromConfig(cfg)

	stored, err := app.LoadTuning(st, tuning)
	if err != nil {
		log.Warn("ignoring stored settings", "error", err)
	} else {
		tuning = stored
	}

	applyFloat(cmd, "alpha", &tuning.Alpha, alpha)
	applyFloat(cmd, "threshold", &tuning.PinchThreshold, threshold)
	applyInt(cmd, "cooldown", &tuning.ClickCooldownMs, cooldownMs)
	applyString(cmd, "click-mode", &tuning.ClickMode, clickMode)
	return tuning
}

func openStore() (*store.Store, error) {
	dbPath := config.DefaultDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

// newOpener returns the landmark source for each run: a recorded session
// when --replay is set, the camera otherwise.
func newOpener(cfg config.Config) (capture.Opener, error) {
	if replayPath != "" {
		rec, err := capture.LoadRecording(replayPath)
		if err != nil {
			return nil, err
		}
		log.Info("replaying recorded session", "path", replayPath, "frames", len(rec.Frames))
		return capture.NewReplayOpener(rec, true, replayInterval), nil
	}

	detCfg := detector.DefaultConfig()
	detCfg.StartupTimeout = cfg.DetectorStartup()
	if exe, err := os.Executable(); err == nil {
		detCfg.ScriptDirs = append(detCfg.ScriptDirs, config.DefaultDataDir(), filepath.Dir(filepath.Dir(exe)))
	}
	det, err := detector.NewMediaPipeDetector(detCfg)
	if err != nil {
		return nil, fmt.Errorf("hand detector unavailable: %w", err)
	}

	return capture.NewCameraOpener(capture.SourceConfig{
		Camera: capture.CameraConfig{
			DeviceID: cfg.CameraDeviceIndex,
			Width:    cfg.FrameWidth,
			Height:   cfg.FrameHeight,
		},
		Mirror: cfg.Mirror,
	}, det), nil
}

func runRootCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error("failed to close db", "error", cerr)
		}
	}()
	if n, err := st.Runs().MarkInterrupted(); err != nil {
		log.Warn("failed to close unfinished runs", "error", err)
	} else if n > 0 {
		log.Info("marked unfinished runs as interrupted", "count", n)
	}

	opener, err := newOpener(cfg)
	if err != nil {
		return err
	}

	var actuator cursor.Actuator = cursor.NewRobotActuator()
	screen := cursor.Size{Width: dryRunWidth, Height: dryRunHeight}
	if dryRun {
		actuator = cursor.NewLogActuator()
	} else {
		screen = cursor.ScreenSize()
	}
	log.Info("screen", "width", screen.Width, "height", screen.Height, "dry_run", dryRun)

	controller := app.New(app.Config{
		Open:        opener,
		Actuator:    actuator,
		Screen:      screen,
		Tuning:      resolveTuning(cmd, cfg, st),
		JoinTimeout: cfg.JoinTimeout(),
		Store:       st,
	})

	srv := server.New(server.Config{
		StaticDir:  staticDir,
		Store:      st,
		Controller: controller,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
			log.Error("http server failed", "addr", cfg.ListenAddr, "error", err)
			cancel()
		}
	}()

	if autoStart {
		if err := controller.Start(); err != nil {
			log.Error("failed to start control", "error", err)
		}
	}

	if headless {
		<-ctx.Done()
	} else {
		runTray(ctx, cancel, controller, "http://"+cfg.ListenAddr)
	}

	// Closing the application stops control first.
	shutdown(controller)
	cancel()
	return nil
}

func runTray(ctx context.Context, cancel context.CancelFunc, controller *app.App, dashboardURL string) {
	t := tray.New()
	t.OnStart(controller.Start)
	t.OnStop(controller.Stop)
	t.OnDashboard(func() {
		if err := openBrowser(dashboardURL); err != nil {
			log.Warn("failed to open dashboard", "url", dashboardURL, "error", err)
		}
	})
	t.OnQuit(cancel)

	controller.OnStateChange(func(s app.State, err error) {
		status := tray.Status{Running: s != app.StateIdle, Label: s.Label()}
		if err != nil {
			status.Error = err.Error()
		}
		t.SetStatus(status)
	})
	if controller.State() != app.StateIdle {
		t.SetStatus(tray.Status{Running: true, Label: controller.State().Label()})
	}

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

func shutdown(controller *app.App) {
	err := controller.Stop()
	switch {
	case err == nil, errors.Is(err, app.ErrNotRunning):
	case errors.Is(err, app.ErrStopTimeout):
		log.Warn("control loop still running at exit")
	default:
		log.Error("failed to stop control", "error", err)
	}
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent control runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
	cmd.Flags().IntVar(&runsLimit, "limit", defaultRunsLimit, "number of runs to show")
	return cmd
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs().List(runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tFRAMES\tHAND\tCLICKS\tMODE\tREASON\tID")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatDuration(r),
			r.Frames, r.HandFrames, r.Clicks,
			r.ClickMode, formatReason(r), r.ID,
		)
	}
	return w.Flush()
}

func formatDuration(r *store.Run) string {
	if r.StoppedAt == nil {
		return "running"
	}
	return r.StoppedAt.Sub(r.StartedAt).Round(time.Second).String()
}

func formatReason(r *store.Run) string {
	if r.StopReason == "" {
		return "-"
	}
	return r.StopReason
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create the config file if missing and print its path",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(configPath); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), configPath)
	return nil
}

func defaultConfigTemplate() string {
	d := config.Default()
	return fmt.Sprintf(`# airpointer configuration
# Uncomment a value to enable it. CLI flags and dashboard settings override config values.

# alpha = %.2f                # Smoothing factor in (0, 1]; lower is smoother but lags more
# pinch_threshold = %.3f     # Thumb to index distance that counts as a pinch
# click_cooldown_ms = %d      # Minimum milliseconds between clicks
# click_mode = %q         # "edge" clicks once per pinch, "repeat" clicks while held

# camera_device_index = %d
# frame_width = %d
# frame_height = %d
# mirror = %t
# detector_startup_timeout_s = %d   # Time allowed for the hand model to load

# join_timeout_ms = %d
# listen_addr = %q
# log_level = %q
`,
		d.Alpha, d.PinchThreshold, d.ClickCooldownMs, d.ClickMode,
		d.CameraDeviceIndex, d.FrameWidth, d.FrameHeight, d.Mirror, d.DetectorStartupS,
		d.JoinTimeoutMs, d.ListenAddr, d.LogLevel,
	)
}

func applyString(cmd *cobra.Command, name string, target *string, value string) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyInt(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyFloat(cmd *cobra.Command, name string, target *float64, value float64) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

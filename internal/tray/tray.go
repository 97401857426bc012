// Package tray provides the system tray control surface of airpointer.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: a start/stop toggle, a status line and quit.
type Tray struct {
	onStart     func() error
	onStop      func() error
	onDashboard func()
	onQuit      func()
	status      Status
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
	menuError  *systray.MenuItem
}

// Status is what the tray displays about the control loop.
type Status struct {
	Running bool
	Label   string
	Error   string
}

// New creates a new Tray showing an idle controller.
func New() *Tray {
	return &Tray{
		status: Status{Label: "IDLE"},
	}
}

// OnStart sets the callback invoked by the Start menu item.
func (t *Tray) OnStart(fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// OnStop sets the callback invoked by the Stop menu item.
func (t *Tray) OnStop(fn func() error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnDashboard sets the callback invoked by the dashboard menu item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback invoked before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("airpointer")
	systray.SetTooltip("airpointer hand cursor control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.status), "Start or stop cursor control")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(statusTitle(t.status), "Control loop status")
	t.menuStatus.Disable()
	t.menuError = systray.AddMenuItem("", "Last error")
	t.menuError.Disable()
	t.menuError.Hide()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Stop control and quit airpointer")

	t.SetStatus(t.Status())

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle starts or stops control depending on the displayed state.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	callback := t.onStart
	if t.status.Running {
		callback = t.onStop
	}
	t.mu.RUnlock()

	// Call the callback outside the lock; it reports back through SetStatus.
	if callback == nil {
		return
	}
	if err := callback(); err != nil {
		t.mu.RLock()
		st := t.status
		t.mu.RUnlock()
		st.Error = err.Error()
		t.SetStatus(st)
	}
}

// handleDashboard handles the dashboard menu item click.
func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the toggle and status lines.
func (t *Tray) SetStatus(st Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = st

	if t.menuToggle == nil {
		return
	}
	t.menuToggle.SetTitle(toggleTitle(st))
	t.menuStatus.SetTitle(statusTitle(st))
	if st.Error == "" {
		t.menuError.Hide()
	} else {
		t.menuError.SetTitle(errorTitle(st.Error))
		t.menuError.Show()
	}
}

// Status returns the displayed status.
func (t *Tray) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func toggleTitle(st Status) string {
	if st.Running {
		return "■ Stop Control"
	}
	return "▶ Start Control"
}

func statusTitle(st Status) string {
	if st.Label == "" {
		return "Status: IDLE"
	}
	return "Status: " + st.Label
}

const maxErrorTitle = 60

func errorTitle(msg string) string {
	r := []rune(msg)
	if len(r) > maxErrorTitle {
		msg = string(r[:maxErrorTitle-1]) + "…"
	}
	return "Error: " + msg
}

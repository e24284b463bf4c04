// Package tray provides a desktop system tray interface for the hand
// teleoperation daemon.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray shows pipeline status in the system tray and lets the operator
// pause gesture control without stopping the daemon.
type Tray struct {
	onToggle func(enabled bool)
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance with gesture control enabled by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback invoked when gesture control is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnQuit sets the callback invoked when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("HandTeleop")
	systray.SetTooltip("Hand Gesture Teleoperation")

	t.menuToggle = systray.AddMenuItem("● Enabled", "Toggle gesture control")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem("Status: idle", "Pipeline status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit HandTeleop")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	// Cleanup resources if needed
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if enabled {
		t.menuToggle.SetTitle("● Enabled")
	} else {
		t.menuToggle.SetTitle("○ Disabled")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the status line in the menu, e.g. "tracking" or
// "gripper closed".
func (t *Tray) SetStatus(text string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		if text == "" {
			text = "idle"
		}
		t.menuStatus.SetTitle("Status: " + text)
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

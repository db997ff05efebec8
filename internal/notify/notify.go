// Package notify shows desktop notifications for update events.
package notify

import (
	"sync"
	"time"
)

const (
	// readyRepeatWindow is how long a ready notification for a given version
	// suppresses repeats. Entries older than this are dropped from the
	// dedup map.
	readyRepeatWindow = 24 * time.Hour
	// errorRepeatWindow throttles failure notifications.
	errorRepeatWindow = time.Minute
)

// Manager sends desktop notifications with per-key throttling.
type Manager struct {
	mu        sync.Mutex
	enabled   bool
	lastNotif map[string]time.Time
	appName   string

	// now is replaced in tests.
	now func() time.Time
}

// NewManager creates a notification manager.
func NewManager(appName string, enabled bool) *Manager {
	return &Manager{
		enabled:   enabled,
		lastNotif: make(map[string]time.Time),
		appName:   appName,
		now:       time.Now,
	}
}

// SetEnabled toggles notifications.
func (nm *Manager) SetEnabled(enabled bool) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.enabled = enabled
}

// NotifyUpdateReady announces a downloaded update awaiting install.
// Shown at most once per version per repeat window.
func (nm *Manager) NotifyUpdateReady(version string) {
	if !nm.shouldNotify("update-ready:"+version, readyRepeatWindow) {
		return
	}
	go nm.send("Update ready", "Version "+version+" has been downloaded and will be installed on restart")
}

// NotifyUpdateError announces a failed interactive update check.
// Shown at most once per minute.
func (nm *Manager) NotifyUpdateError(message string) {
	if !nm.shouldNotify("update-error", errorRepeatWindow) {
		return
	}
	go nm.send("Update check failed", message)
}

// shouldNotify reports whether a notification for key is due and records it.
// Entries past the longest repeat window are pruned here, so the map stays
// bounded however many versions pass through.
func (nm *Manager) shouldNotify(key string, window time.Duration) bool {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if !nm.enabled {
		return false
	}

	now := nm.now()
	if last, seen := nm.lastNotif[key]; seen && now.Sub(last) < window {
		return false
	}

	for k, t := range nm.lastNotif {
		if now.Sub(t) >= readyRepeatWindow {
			delete(nm.lastNotif, k)
		}
	}

	nm.lastNotif[key] = now
	return true
}

// Package updater owns the application self-update state machine: it
// dispatches checks to the platform updater bridge, reacts to the bridge's
// lifecycle callbacks, persists the last successful check, and publishes
// state-change and error events to subscribers.
package updater

import (
	"time"

	"desk-updater/internal/release"
)

// Status is the current position in the update lifecycle. Exactly one value
// is active at a time.
type Status int

const (
	// StatusNotAvailable means the most recent completed check found no newer
	// build. Initial value.
	StatusNotAvailable Status = iota
	// StatusChecking means a check is in flight.
	StatusChecking
	// StatusAvailable means a newer build exists and download has begun.
	StatusAvailable
	// StatusReady means a build is fully downloaded and awaits install.
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusNotAvailable:
		return "not-available"
	case StatusChecking:
		return "checking"
	case StatusAvailable:
		return "available"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// State is the externally observable snapshot of the coordinator.
type State struct {
	Status Status
	// LastSuccessfulCheck is the wall-clock time of the most recent check
	// that reached a definitive outcome. Zero until the first such check
	// since install; restored from the checkpoint store on startup.
	LastSuccessfulCheck time.Time
	// NewRelease describes the pending update. Non-nil only once an update
	// has been downloaded; once set it is never cleared, so stale release
	// notes persist if a later check transitions status away from ready.
	NewRelease *release.Summary
}

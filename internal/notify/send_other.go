//go:build !windows && !darwin

package notify

import "desk-updater/internal/core"

func (nm *Manager) send(title, message string) {
	core.Log.Infof("Notify", "%s: %s", title, message)
}

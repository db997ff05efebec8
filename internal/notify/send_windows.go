//go:build windows

package notify

import (
	"github.com/go-toast/toast"

	"desk-updater/internal/core"
)

func (nm *Manager) send(title, message string) {
	n := toast.Notification{
		AppID:   nm.appName,
		Title:   title,
		Message: message,
	}
	if err := n.Push(); err != nil {
		core.Log.Warnf("Notify", "Toast notification failed: %v", err)
	}
}

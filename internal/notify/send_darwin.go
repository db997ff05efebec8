//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
	"strings"

	"desk-updater/internal/core"
)

func (nm *Manager) send(title, message string) {
	script := fmt.Sprintf(`display notification %q with title %q`,
		sanitize(message), sanitize(title))
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		core.Log.Warnf("Notify", "osascript notification failed: %v", err)
	}
}

// sanitize strips characters that would break out of the AppleScript string.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, `\`, ``)
	s = strings.ReplaceAll(s, `"`, `'`)
	return s
}

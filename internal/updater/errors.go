package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UpdateError wraps a check failure with whether it happened during a
// background (non-interactive) check. Foreground errors are meant to be shown
// to the user; background errors logged quietly.
type UpdateError struct {
	Err        error
	Background bool
}

func (e UpdateError) Error() string {
	if e.Background {
		return "background update check: " + e.Err.Error()
	}
	return "update check: " + e.Err.Error()
}

func (e UpdateError) Unwrap() error {
	return e.Err
}

// InstallerError is a structured error recovered from the Windows updater's
// raw output.
type InstallerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *InstallerError) Error() string {
	return fmt.Sprintf("installer error %d: %s", e.Code, e.Message)
}

// parseRawUpdaterError attempts to recover a structured error from the
// opaque, non-uniform text the Windows updater reports. The updater appends a
// JSON object as the last line of its output; anything before it is
// free-form log noise. When no structured form can be recovered the original
// error is returned unchanged so it is never silently swallowed.
func parseRawUpdaterError(err error) error {
	lines := strings.Split(err.Error(), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "{") {
			return err
		}
		var parsed InstallerError
		if jsonErr := json.Unmarshal([]byte(line), &parsed); jsonErr != nil || parsed.Message == "" {
			return err
		}
		return &parsed
	}
	return err
}

// IsInstallerError reports whether err carries a structured installer error.
func IsInstallerError(err error) bool {
	var ie *InstallerError
	return errors.As(err, &ie)
}

//go:build !windows

package bridge

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// restart replaces the current process image with the freshly installed
// binary. Does not return on success.
func restart() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	return unix.Exec(executable, os.Args, os.Environ())
}

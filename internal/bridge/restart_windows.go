//go:build windows

package bridge

import (
	"fmt"
	"os"
	"os/exec"
)

// restart spawns the freshly installed binary and exits the current process.
// Windows has no exec-style process replacement.
func restart() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	cmd := exec.Command(executable, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start new process: %w", err)
	}

	os.Exit(0)
	return nil
}

package bridge

import (
	"fmt"
	"os"

	update "github.com/inconshreveable/go-update"

	"desk-updater/internal/core"
)

// QuitAndInstallUpdate replaces the running executable with the downloaded
// build and restarts into it. Callers must invoke SendWillQuitSync first so
// teardown listeners get a chance to run.
func (b *ReleaseBridge) QuitAndInstallUpdate() {
	p := b.Pending()
	if p == nil {
		core.Log.Warnf("Bridge", "QuitAndInstallUpdate called with no downloaded update")
		return
	}

	if err := applyBinary(p.BinaryPath); err != nil {
		core.Log.Errorf("Bridge", "Install %s failed: %v", p.Version, err)
		return
	}

	core.Log.Infof("Bridge", "Installed %s, restarting...", p.Version)
	if err := restart(); err != nil {
		core.Log.Errorf("Bridge", "Restart failed: %v", err)
		os.Exit(0)
	}
}

// applyBinary atomically swaps the current executable for the one at path.
func applyBinary(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open new binary: %w", err)
	}
	defer f.Close()

	if err := update.Apply(f, update.Options{}); err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return fmt.Errorf("apply failed and rollback failed, binary may be broken: %w", rerr)
		}
		return fmt.Errorf("apply update: %w", err)
	}
	return nil
}

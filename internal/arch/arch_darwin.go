//go:build darwin

package arch

import (
	"errors"
	"runtime"

	"golang.org/x/sys/unix"
)

// translatedProcess asks the kernel whether this process runs under Rosetta.
// The sysctl is absent on machines without a translation layer.
func translatedProcess() (bool, error) {
	v, err := unix.SysctlUint32("sysctl.proc_translated")
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return false, nil
		}
		return false, err
	}
	return v == 1, nil
}

// emulatedProcess reports an amd64 build running on Apple silicon hardware.
func emulatedProcess() bool {
	if runtime.GOARCH != "amd64" {
		return false
	}
	v, err := unix.SysctlUint32("hw.optional.arm64")
	return err == nil && v == 1
}

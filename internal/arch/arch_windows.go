//go:build windows

package arch

import (
	"runtime"

	"golang.org/x/sys/windows"
)

// translatedProcess reports whether this process runs under the WOW64
// emulation layer.
func translatedProcess() (bool, error) {
	var processMachine, nativeMachine uint16
	if err := windows.IsWow64Process2(windows.CurrentProcess(), &processMachine, &nativeMachine); err != nil {
		return false, err
	}
	return processMachine != windows.IMAGE_FILE_MACHINE_UNKNOWN, nil
}

// emulatedProcess reports an amd64 build running on a Windows-on-ARM machine.
func emulatedProcess() bool {
	var processMachine, nativeMachine uint16
	if err := windows.IsWow64Process2(windows.CurrentProcess(), &processMachine, &nativeMachine); err != nil {
		return false
	}
	return runtime.GOARCH == "amd64" && nativeMachine == windows.IMAGE_FILE_MACHINE_ARM64
}

//go:build !darwin && !windows

package arch

// No supported translation layer on this platform.
func translatedProcess() (bool, error) {
	return false, nil
}

func emulatedProcess() bool {
	return false
}

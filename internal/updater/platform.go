package updater

import (
	"fmt"
	"runtime"
)

// Platform identifies the OS whose updater quirks the coordinator must honor.
// Injected through Config rather than build tags so the platform-conditional
// logic stays testable everywhere.
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformWindows
	PlatformDarwin
)

func (p Platform) String() string {
	switch p {
	case PlatformLinux:
		return "linux"
	case PlatformWindows:
		return "windows"
	case PlatformDarwin:
		return "darwin"
	default:
		return "unknown"
	}
}

// CurrentPlatform detects the platform of the running process.
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformDarwin
	default:
		return PlatformLinux
	}
}

// ParsePlatform parses a config override. Empty means detect.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "":
		return CurrentPlatform(), nil
	case "windows":
		return PlatformWindows, nil
	case "darwin", "macos":
		return PlatformDarwin, nil
	case "linux":
		return PlatformLinux, nil
	default:
		return CurrentPlatform(), fmt.Errorf("unknown platform: %q", s)
	}
}

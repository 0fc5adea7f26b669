package model

import (
	"fmt"
	"runtime"
)

// Platform is the operating system a release asset must be installable on.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
)

// ParsePlatform converts a user-supplied string into a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformAndroid, PlatformWindows, PlatformMacOS, PlatformLinux:
		return Platform(s), nil
	default:
		return "", fmt.Errorf("unknown platform %q (expected android, windows, macos or linux)", s)
	}
}

// CurrentPlatform detects the platform from the running OS.
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "android":
		return PlatformAndroid
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMacOS
	default:
		return PlatformLinux
	}
}

// Package platform defines the closed set of platforms the binary
// catalog can target and detects the one the tool is running on.
package platform

import (
	"fmt"
	"runtime"
)

// Platform is one of the three platforms prebuilt binaries are
// published for. The spelling matches the configuration document keys
// ("binaries", "bin_path_<platform>", "cmake_variables_<platform>").
type Platform string

const (
	Windows Platform = "Windows"
	Macos   Platform = "Macos"
	Linux   Platform = "Linux"
)

// All lists every known platform in a fixed order.
var All = []Platform{Windows, Macos, Linux}

// Current returns the platform the tool is running on.
func Current() Platform {
	switch runtime.GOOS {
	case "windows":
		return Windows
	case "darwin":
		return Macos
	default:
		return Linux
	}
}

// Parse validates a platform key from the configuration document.
func Parse(s string) (Platform, error) {
	switch Platform(s) {
	case Windows, Macos, Linux:
		return Platform(s), nil
	default:
		return "", fmt.Errorf("unknown platform %q (must be Windows, Macos or Linux)", s)
	}
}

// Known reports whether s is a member of the closed platform set.
func Known(s string) bool {
	_, err := Parse(s)
	return err == nil
}

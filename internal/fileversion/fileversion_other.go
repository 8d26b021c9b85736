//go:build !windows

package fileversion

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

// ErrUnsupportedPlatform is returned when version resources cannot be read
// on the current operating system.
var ErrUnsupportedPlatform = errors.New("version resources are only readable on windows")

// ProductVersion fails on non-Windows platforms; version resources live in
// the PE file format and are read through version.dll.
func ProductVersion(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat executable: %w", err)
	}

	return "", fmt.Errorf("%s: %w", runtime.GOOS, ErrUnsupportedPlatform)
}

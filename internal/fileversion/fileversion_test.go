package fileversion

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestProductVersionMissingFile ensures a missing executable is reported
// before any platform-specific work happens.
func TestProductVersionMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ProductVersion(filepath.Join(t.TempDir(), "missing.exe"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestProductVersionUnsupportedPlatform ensures the sentinel error is
// returned for files without a readable version resource off Windows.
func TestProductVersionUnsupportedPlatform(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("windows reads real version resources")
	}

	path := filepath.Join(t.TempDir(), "tool.exe")
	require.NoError(t, os.WriteFile(path, []byte("not a real pe"), 0o755))

	_, err := ProductVersion(path)
	require.ErrorIs(t, err, ErrUnsupportedPlatform)
}

package refresher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestIsStrictlyNewer checks numeric (not lexical) multi-component ordering.
func TestIsStrictlyNewer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		candidate string
		current   string
		newer     bool
		wantErr   bool
	}{
		{"16.0.10", "16.0.9", true, false},
		{"16.0.9", "16.0.10", false, false},
		{"16.0.10", "16.0.10", false, false},
		{"16.0.2", "16.0.1", true, false},
		{"2.0.0", "16.0.1", false, false},
		{"16.0.11029.20108", "16.0.11029.20079", true, false},
		{"garbage", "16.0.1", false, true},
		{"16.0.1", "garbage", false, true},
	}

	for _, tc := range cases {
		newer, err := isStrictlyNewer(tc.candidate, tc.current)
		if tc.wantErr {
			require.Error(t, err, "%s vs %s", tc.candidate, tc.current)
			continue
		}

		require.NoError(t, err, "%s vs %s", tc.candidate, tc.current)
		require.Equal(t, tc.newer, newer, "%s vs %s", tc.candidate, tc.current)
	}
}

// TestListContentVersions ensures version folders come back in ascending
// version order and non-version entries are ignored.
func TestListContentVersions(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	for _, name := range []string{"16.0.10", "16.0.2", "16.0.9"} {
		require.NoError(t, os.Mkdir(filepath.Join(dataDir, name), 0o755))
	}

	// Noise: a non-version folder and a plain file.
	require.NoError(t, os.Mkdir(filepath.Join(dataDir, "notaversion"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "v16.0.10_hash.cab"), nil, 0o644))

	versions, err := listContentVersions(dataDir)
	require.NoError(t, err)
	require.Equal(t, []string{"16.0.2", "16.0.9", "16.0.10"}, versions)
}

// TestCompanionCab finds the archive matching a content version by name pattern.
func TestCompanionCab(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "v16.0.1_en-us.cab"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "v16.0.2_en-us.cab"), nil, 0o644))

	cab, err := companionCab(dataDir, "16.0.1")
	require.NoError(t, err)
	require.Equal(t, "v16.0.1_en-us.cab", cab)

	cab, err = companionCab(dataDir, "16.0.3")
	require.NoError(t, err)
	require.Empty(t, cab)
}

package refresher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

const (
	// StagedToolName is the deployment-tool executable kept in the package directory.
	StagedToolName = "setup.exe"

	// MarkerFilename marks that a refresh is running right now to avoid parallel execution.
	MarkerFilename = "odt-sync-marker.bin"

	// downloadMarkerText is the visible text of the manual-download link on
	// the vendor confirmation page.
	downloadMarkerText = "click here to download manually"

	// tempDirPermissions is used when creating the temp and extraction directories.
	tempDirPermissions os.FileMode = 0o755
)

// contentDataDir returns the directory holding the version-named content folders.
func contentDataDir(packagePath string) string {
	return filepath.Join(packagePath, "office", "data")
}

// isStrictlyNewer reports whether candidate orders strictly after current
// under dotted-integer comparison. Malformed versions are an error, not a
// silent no-op.
func isStrictlyNewer(candidate, current string) (bool, error) {
	candidateVersion, err := goversion.NewVersion(candidate)
	if err != nil {
		return false, fmt.Errorf("parse candidate version %q: %w", candidate, err)
	}

	currentVersion, err := goversion.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("parse current version %q: %w", current, err)
	}

	return candidateVersion.GreaterThan(currentVersion), nil
}

// listContentVersions returns the names of version-named subdirectories of
// dataDir in ascending version order. Entries that do not parse as versions
// are ignored; the external tool owns the directory and may keep other files there.
func listContentVersions(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read content directory: %w", err)
	}

	type namedVersion struct {
		name    string
		version *goversion.Version
	}

	versions := make([]namedVersion, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		parsed, err := goversion.NewVersion(entry.Name())
		if err != nil {
			continue
		}

		versions = append(versions, namedVersion{name: entry.Name(), version: parsed})
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].version.LessThan(versions[j].version)
	})

	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, v.name)
	}

	return names, nil
}

// companionCab returns the name of the archive file belonging to the given
// content version ("v<version>_<hash>.cab"), or "" when none exists.
func companionCab(dataDir, contentVersion string) (string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return "", fmt.Errorf("read content directory: %w", err)
	}

	prefix := "v" + contentVersion + "_"

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".cab") {
			return name, nil
		}
	}

	return "", nil
}

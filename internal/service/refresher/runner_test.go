package refresher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/odt-sync/internal/catalog"
	"github.com/oshokin/odt-sync/internal/config"
)

// TestRunRequiresConfiguration rejects missing options and configurations.
func TestRunRequiresConfiguration(t *testing.T) {
	t.Parallel()

	require.Error(t, Run(context.Background(), nil))
	require.Error(t, Run(context.Background(), &Options{}))
	require.Error(t, Run(context.Background(), &Options{Config: &config.Config{}}))
}

// TestStaleMarkerIsRecovered ensures a marker without a matching live
// process does not block the next run.
func TestStaleMarkerIsRecovered(t *testing.T) {
	t.Parallel()

	packagePath := t.TempDir()
	markerPath := filepath.Join(packagePath, MarkerFilename)
	require.NoError(t, os.WriteFile(markerPath, nil, 0o644))

	// Test binaries never share the odt-sync executable name, so the marker
	// is recognized as stale and removed.
	require.False(t, isRefreshRunning(context.Background(), packagePath))

	_, err := os.Stat(markerPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// recordingStage appends its name to ran when executed and returns err.
func recordingStage(ran *[]string, name string, fatal bool, err error) stage {
	return stage{
		name:  name,
		fatal: fatal,
		run: func(context.Context) error {
			*ran = append(*ran, name)
			return err
		},
	}
}

// driverFixture builds a runner whose catalog sync can succeed, so the tests
// can observe whether the driver reached it.
func driverFixture(t *testing.T, fake *fakeCatalog) *runner {
	t.Helper()

	return &runner{
		cfg: &config.Config{
			PackagePath:     makePackageDir(t, "16.0.2"),
			ApplicationName: "Office 365 ProPlus",
			SkipDetection:   true,
		},
		client: fake,
	}
}

// TestRunStagesShortCircuit ensures a fatal stage failure aborts the
// remaining stages and skips catalog synchronization entirely.
func TestRunStagesShortCircuit(t *testing.T) {
	t.Parallel()

	fake := &fakeCatalog{
		deploymentType: &catalog.DeploymentType{ApplicationID: "16777619", Name: "Install Office 365"},
	}
	r := driverFixture(t, fake)

	var ran []string

	err := r.runStages(context.Background(), []stage{
		recordingStage(&ran, "first", true, nil),
		recordingStage(&ran, "second", true, errors.New("download refused")),
		recordingStage(&ran, "third", true, nil),
	})

	require.Error(t, err)
	require.Contains(t, err.Error(), "second")
	require.Equal(t, []string{"first", "second"}, ran)
	require.False(t, fake.redistributed)
}

// TestRunStagesNonFatalContinue ensures a non-fatal stage failure is
// swallowed: the remaining stages run and the catalog is synchronized.
func TestRunStagesNonFatalContinue(t *testing.T) {
	t.Parallel()

	fake := &fakeCatalog{
		deploymentType: &catalog.DeploymentType{ApplicationID: "16777619", Name: "Install Office 365"},
	}
	r := driverFixture(t, fake)

	var ran []string

	err := r.runStages(context.Background(), []stage{
		recordingStage(&ran, "cleanup", false, errors.New("file busy")),
		recordingStage(&ran, "after", true, nil),
	})

	require.NoError(t, err)
	require.Equal(t, []string{"cleanup", "after"}, ran)
	require.True(t, fake.redistributed)
}

// extractorScript plays the downloaded self-extractor: it honors the
// /extract: argument and drops a setup.exe that, when later invoked with
// /download, produces the 16.0.2 content folder and archive.
const extractorScript = `#!/bin/sh
dir="${2#/extract:}"
mkdir -p "$dir"
cat > "$dir/setup.exe" <<'EOF'
#!/bin/sh
mkdir -p office/data/16.0.2
: > office/data/v16.0.2_hash.cab
EOF
chmod +x "$dir/setup.exe"
`

// TestRunEndToEnd drives the full pipeline through Run: staged tool v16.0.1
// with cached content 16.0.1, downloaded tool v16.0.2. The staged tool must
// be replaced, content 16.0.2 pulled, the 16.0.1 folder and archive pruned,
// the detection clause rewritten to 16.0.2 and redistribution requested.
func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("tool stubs are shell scripts")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/confirmation":
			_, _ = w.Write([]byte(confirmationPage))
		case "/download/officedeploymenttool_12345-67890.exe":
			_, _ = w.Write([]byte(extractorScript))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	packagePath := makePackageDir(t, "16.0.1")
	dataDir := contentDataDir(packagePath)
	stagedTool := filepath.Join(packagePath, StagedToolName)
	require.NoError(t, os.WriteFile(stagedTool, []byte("old staged tool"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(packagePath, "configuration.xml"), []byte("<Configuration/>"), 0o644))

	tempDir := t.TempDir()
	downloadedTool := filepath.Join(tempDir, "officedeploymenttool_12345-67890.exe")
	extractedTool := filepath.Join(tempDir, "16.0.2", StagedToolName)

	fake := &fakeCatalog{
		deploymentType: &catalog.DeploymentType{
			ApplicationID: "16777619",
			Name:          "Install Office 365",
			Descriptor:    descriptorWithSetting,
		},
	}

	r := &runner{
		cfg: &config.Config{
			PackagePath:     packagePath,
			ApplicationName: "Office 365 ProPlus",
			DownloadConfig:  "configuration.xml",
			VendorPageURL:   server.URL + "/confirmation",
			TempDir:         tempDir,
			Timeout:         5 * time.Second,
			SkipDetection:   false,
		},
		client:     fake,
		httpClient: server.Client(),
		productVersion: versionStub(map[string]string{
			downloadedTool: "16.0.2",
			extractedTool:  "16.0.2",
			stagedTool:     "16.0.1",
		}),
	}

	require.NoError(t, r.Run(context.Background()))

	// The staged tool was replaced by the extracted one.
	contents, err := os.ReadFile(stagedTool)
	require.NoError(t, err)
	require.Contains(t, string(contents), "16.0.2")

	// Old content pair pruned, new pair present.
	_, err = os.Stat(filepath.Join(dataDir, "16.0.1"))
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(dataDir, "v16.0.1_hash.cab"))
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(dataDir, "16.0.2"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dataDir, "v16.0.2_hash.cab"))
	require.NoError(t, err)

	// Temp artifacts were cleaned before the content update.
	_, err = os.Stat(downloadedTool)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(filepath.Join(tempDir, "16.0.2"))
	require.ErrorIs(t, err, os.ErrNotExist)

	// Catalog got the new version and a redistribution request.
	require.Equal(t, "RegSetting_42", fake.replacedLogicalName)
	require.NotNil(t, fake.replacedClause)
	require.Equal(t, "16.0.2", fake.replacedClause.Version)
	require.True(t, fake.redistributed)
}

// TestCleanTemp removes the extraction directory and the downloaded tool and
// tolerates paths that are already gone.
func TestCleanTemp(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	extractionDir := filepath.Join(tempDir, "16.0.2")
	downloadedTool := filepath.Join(tempDir, "tool.exe")

	require.NoError(t, os.Mkdir(extractionDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(extractionDir, StagedToolName), nil, 0o755))
	require.NoError(t, os.WriteFile(downloadedTool, nil, 0o755))

	r := &runner{extractionDir: extractionDir, downloadedTool: downloadedTool}
	require.NoError(t, r.cleanTemp(context.Background()))

	_, err := os.Stat(extractionDir)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(downloadedTool)
	require.ErrorIs(t, err, os.ErrNotExist)

	// Second invocation is a no-op.
	require.NoError(t, r.cleanTemp(context.Background()))
}

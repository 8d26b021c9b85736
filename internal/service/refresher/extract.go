package refresher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/oshokin/odt-sync/internal/logger"
)

// extractTool reads the downloaded self-extractor's product version, creates
// a version-named extraction directory under the temp path and runs the
// silent extraction, blocking until the process exits.
func (r *runner) extractTool(ctx context.Context) error {
	toolVersion, err := r.productVersion(r.downloadedTool)
	if err != nil {
		return fmt.Errorf("read downloaded tool version: %w", err)
	}

	extractionDir := filepath.Join(r.cfg.TempDir, toolVersion)
	if err = os.MkdirAll(extractionDir, tempDirPermissions); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}

	logger.InfoKV(ctx, "Extracting deployment tool", "version", toolVersion, "directory", extractionDir)

	cmd := exec.CommandContext(ctx, r.downloadedTool, "/quiet", "/extract:"+extractionDir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run self-extraction: %w (output: %s)", err, string(output))
	}

	r.extractionDir = extractionDir

	return nil
}

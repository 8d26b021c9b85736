package refresher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/oshokin/odt-sync/internal/logger"
)

// updateContent snapshots the current content-version folders and their
// archive file, then runs the staged tool's content download and blocks until
// it completes. The external tool decides what the new content version is.
func (r *runner) updateContent(ctx context.Context) error {
	dataDir := contentDataDir(r.cfg.PackagePath)

	if err := r.snapshotContent(ctx, dataDir); err != nil {
		return err
	}

	configPath := filepath.Join(r.cfg.PackagePath, r.cfg.DownloadConfig)
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("download configuration %s: %w", r.cfg.DownloadConfig, err)
	}

	stagedTool := filepath.Join(r.cfg.PackagePath, StagedToolName)

	logger.InfoKV(ctx, "Downloading installer content", "configuration", r.cfg.DownloadConfig)

	cmd := exec.CommandContext(ctx, stagedTool, "/download", r.cfg.DownloadConfig)
	cmd.Dir = r.cfg.PackagePath

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("run content download: %w (output: %s)", err, string(output))
	}

	return nil
}

// snapshotContent records the pre-update content folders and the archive
// file of the newest one, so the pruner knows what became stale.
func (r *runner) snapshotContent(ctx context.Context, dataDir string) error {
	dirs, err := listContentVersions(dataDir)
	if err != nil {
		return err
	}

	r.previousDirs = dirs

	if len(dirs) == 0 {
		logger.Info(ctx, "No cached content versions yet")
		return nil
	}

	currentVersion := dirs[len(dirs)-1]

	cab, err := companionCab(dataDir, currentVersion)
	if err != nil {
		return err
	}

	r.previousCab = cab

	logger.InfoKV(ctx, "Current content snapshot", "version", currentVersion, "archive", cab)

	return nil
}

// pruneContent deletes the pre-update content snapshot once the update has
// produced a newer one. With fewer than two version folders there is nothing
// stale to remove.
func (r *runner) pruneContent(ctx context.Context) error {
	dataDir := contentDataDir(r.cfg.PackagePath)

	dirs, err := listContentVersions(dataDir)
	if err != nil {
		return err
	}

	if len(dirs) < 2 {
		logger.Info(ctx, "Single content version present, nothing to prune")
		return nil
	}

	if len(r.previousDirs) == 0 {
		logger.Warn(ctx, "Multiple content versions but no pre-update snapshot, leaving them in place")
		return nil
	}

	staleVersion := r.previousDirs[len(r.previousDirs)-1]
	if staleVersion == dirs[len(dirs)-1] {
		logger.Info(ctx, "Content version unchanged, nothing to prune")
		return nil
	}

	logger.InfoKV(ctx, "Pruning superseded content", "version", staleVersion, "archive", r.previousCab)

	if err = os.RemoveAll(filepath.Join(dataDir, staleVersion)); err != nil {
		return fmt.Errorf("remove stale content folder: %w", err)
	}

	if r.previousCab != "" {
		if err = os.Remove(filepath.Join(dataDir, r.previousCab)); err != nil {
			return fmt.Errorf("remove stale content archive: %w", err)
		}
	}

	return nil
}

// newestContentVersion returns the highest version folder name left in the
// content directory; it is the authoritative content version after a refresh.
func (r *runner) newestContentVersion() (string, error) {
	dirs, err := listContentVersions(contentDataDir(r.cfg.PackagePath))
	if err != nil {
		return "", err
	}

	if len(dirs) == 0 {
		return "", fmt.Errorf("no content versions in %s", contentDataDir(r.cfg.PackagePath))
	}

	return dirs[len(dirs)-1], nil
}

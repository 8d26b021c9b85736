package refresher

import (
	"bytes"
	"context"
	"crypto"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/odt-sync/internal/logger"

	// Ensure SHA512 is available for the apply checksum.
	_ "crypto/sha512"
)

// stagedToolMode is applied to the staged executable when it is replaced.
const stagedToolMode os.FileMode = 0o755

// reconcileTool compares the extracted tool's product version against the
// staged one and replaces the staged executable only when the extracted
// version is strictly newer. Equal or older versions leave it untouched.
func (r *runner) reconcileTool(ctx context.Context) error {
	extractedTool := filepath.Join(r.extractionDir, StagedToolName)
	stagedTool := filepath.Join(r.cfg.PackagePath, StagedToolName)

	extractedVersion, err := r.productVersion(extractedTool)
	if err != nil {
		return fmt.Errorf("read extracted tool version: %w", err)
	}

	stagedVersion, err := r.productVersion(stagedTool)
	if err != nil {
		return fmt.Errorf("read staged tool version: %w", err)
	}

	newer, err := isStrictlyNewer(extractedVersion, stagedVersion)
	if err != nil {
		return err
	}

	if !newer {
		logger.InfoKV(ctx, "Staged tool is current, keeping it",
			"staged", stagedVersion, "extracted", extractedVersion)

		return nil
	}

	logger.InfoKV(ctx, "Replacing staged tool",
		"staged", stagedVersion, "extracted", extractedVersion)

	if err = replaceStagedTool(extractedTool, stagedTool); err != nil {
		return fmt.Errorf("replace staged tool: %w", err)
	}

	return nil
}

// replaceStagedTool atomically swaps the staged executable for the extracted
// one, verified by a checksum over the bytes being applied.
func replaceStagedTool(sourcePath, targetPath string) error {
	data, err := os.ReadFile(filepath.Clean(sourcePath))
	if err != nil {
		return fmt.Errorf("read extracted tool: %w", err)
	}

	hasher := crypto.SHA512.New()
	if _, err = hasher.Write(data); err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: targetPath,
		TargetMode: stagedToolMode,
		Checksum:   hasher.Sum(nil),
		Hash:       crypto.SHA512,
	})
	if err != nil {
		return err
	}

	// Apply leaves the previous binary behind as "<name>.old".
	oldPath := targetPath + ".old"
	if _, err = os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	return nil
}

package refresher

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// cleanTemp removes the extraction directory and the downloaded
// self-extractor. Failures here are reported by the driver as warnings; a
// leftover temp file does not corrupt the remaining stages.
func (r *runner) cleanTemp(_ context.Context) error {
	var errs []error

	if r.extractionDir != "" {
		if err := os.RemoveAll(r.extractionDir); err != nil {
			errs = append(errs, fmt.Errorf("remove extraction directory: %w", err))
		}
	}

	if r.downloadedTool != "" {
		if err := os.Remove(r.downloadedTool); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove downloaded tool: %w", err))
		}
	}

	return errors.Join(errs...)
}

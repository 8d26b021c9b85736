package refresher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/odt-sync/internal/catalog"
	"github.com/oshokin/odt-sync/internal/config"
	"github.com/oshokin/odt-sync/internal/fileversion"
	"github.com/oshokin/odt-sync/internal/logger"
)

var errRefresherAlreadyRunning = errors.New("a refresh is already running for this package")

// Options are inputs accepted by the refresher entry point.
type Options struct {
	// Config holds the validated run settings.
	Config *config.Config
}

// runner holds the mutable state and helpers for a single refresh execution.
// It is intentionally unexported, call Run(ctx, Options) from callers.
type runner struct {
	cfg    *config.Config
	client catalog.Client

	// productVersion reads the embedded product version of an executable.
	// Overridable in tests; production uses the version-resource reader.
	productVersion func(path string) (string, error)

	// httpClient performs page and binary downloads. It carries no client
	// timeout; the page request is bounded by a per-request context and the
	// binary download runs until done or cancelled.
	httpClient *http.Client

	downloadedTool string   // Path of the downloaded self-extractor.
	extractionDir  string   // Version-named directory the tool extracted into.
	previousDirs   []string // Content version folders present before the update, ascending.
	previousCab    string   // Archive file belonging to the pre-update current version.
}

// stage is one step of the refresh pipeline.
type stage struct {
	name  string
	fatal bool
	run   func(ctx context.Context) error
}

// Run executes the refresh pipeline and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "odt-sync")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer r.cleanup(ctx)

	if err = r.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Refresh run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Refresh completed")

	return nil
}

// newRunner validates options and writes a marker to avoid concurrent runs
// against the same package directory.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	if opts == nil || opts.Config == nil {
		return nil, errors.New("options with a configuration are required")
	}

	cfg := opts.Config
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	r := &runner{
		cfg:            cfg,
		client:         catalog.NewHTTPClient(cfg.CatalogURL, cfg.CatalogToken, cfg.Timeout),
		productVersion: fileversion.ProductVersion,
		httpClient:     &http.Client{},
	}

	if isRefreshRunning(ctx, cfg.PackagePath) {
		return nil, errRefresherAlreadyRunning
	}

	marker, err := os.Create(r.markerPath())
	if err != nil {
		return nil, fmt.Errorf("create run marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		// The deferred cleanup is not registered yet; do not leave the
		// marker behind for the next run's stale-marker recovery.
		_ = os.Remove(r.markerPath())

		return nil, fmt.Errorf("close run marker: %w", err)
	}

	return r, nil
}

// Run executes the pipeline stages in order. Stages marked fatal
// short-circuit everything downstream; the temp cleanup logs a warning and
// moves on. Catalog synchronization runs last and never fails the run.
func (r *runner) Run(ctx context.Context) error {
	return r.runStages(ctx, r.stages())
}

// stages returns the pipeline in execution order.
func (r *runner) stages() []stage {
	return []stage{
		{name: "fetch tool", fatal: true, run: r.fetchTool},
		{name: "extract tool", fatal: true, run: r.extractTool},
		{name: "reconcile tool", fatal: true, run: r.reconcileTool},
		{name: "clean temp", fatal: false, run: r.cleanTemp},
		{name: "update content", fatal: true, run: r.updateContent},
		{name: "prune content", fatal: true, run: r.pruneContent},
	}
}

// runStages drives the stage list and finishes with catalog synchronization.
// The first fatal error aborts everything downstream including the catalog sync.
func (r *runner) runStages(ctx context.Context, stages []stage) error {
	for _, s := range stages {
		logger.Infof(ctx, "Stage: %s", s.name)

		err := s.run(ctx)
		if err == nil {
			continue
		}

		if !s.fatal {
			logger.WarnKV(ctx, "Non-fatal stage failed", "stage", s.name, "error", err)
			continue
		}

		return fmt.Errorf("%s: %w", s.name, err)
	}

	r.syncCatalog(ctx)

	return nil
}

// cleanup removes the run marker. Called on every exit path.
func (r *runner) cleanup(ctx context.Context) {
	if err := os.Remove(r.markerPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove run marker", "error", err)
	}
}

func (r *runner) markerPath() string {
	return filepath.Join(r.cfg.PackagePath, MarkerFilename)
}

// isRefreshRunning checks for a marker left by another run. A marker without
// a matching live process is treated as a leftover from a crashed run and
// removed.
func isRefreshRunning(ctx context.Context, packagePath string) bool {
	markerPath := filepath.Join(packagePath, MarkerFilename)

	if _, err := os.Stat(markerPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false
		}

		logger.WarnKV(ctx, "Unable to read run marker", "error", err)

		return false
	}

	if anotherInstanceAlive(ctx) {
		return true
	}

	logger.Info(ctx, "Stale run marker found, removing it")

	if err := os.Remove(markerPath); err != nil {
		logger.WarnKV(ctx, "Unable to remove stale run marker", "error", err)
		return true
	}

	return false
}

// anotherInstanceAlive reports whether a process with our executable name is
// running besides the current one.
func anotherInstanceAlive(ctx context.Context) bool {
	executablePath, err := os.Executable()
	if err != nil {
		logger.WarnKV(ctx, "Unable to resolve own executable", "error", err)
		return false
	}

	executableName := filepath.Base(executablePath)

	processes, err := ps.Processes()
	if err != nil {
		logger.WarnKV(ctx, "Unable to list processes", "error", err)
		return false
	}

	ownPID := os.Getpid()

	for _, process := range processes {
		if process.Pid() == ownPID {
			continue
		}

		if process.Executable() == executableName {
			return true
		}
	}

	return false
}

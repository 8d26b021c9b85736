package refresher

import (
	"context"

	"github.com/oshokin/odt-sync/internal/catalog"
	"github.com/oshokin/odt-sync/internal/logger"
)

// syncCatalog pushes the new content version into the management catalog.
// Every catalog failure is a warning: a refreshed package on disk is still a
// refreshed package, and a detection-clause failure must not block the
// distribution-point refresh. Only the record lookup gates the calls that
// depend on it.
func (r *runner) syncCatalog(ctx context.Context) {
	ctx = logger.WithName(ctx, "catalog")

	contentVersion, err := r.newestContentVersion()
	if err != nil {
		logger.WarnKV(ctx, "Unable to determine new content version", "error", err)
		return
	}

	logger.InfoKV(ctx, "Synchronizing catalog", "version", contentVersion, "application", r.cfg.ApplicationName)

	deploymentType, err := r.client.DeploymentTypeByApplication(ctx, r.cfg.ApplicationName)
	if err != nil {
		logger.WarnKV(ctx, "Deployment type lookup failed", "application", r.cfg.ApplicationName, "error", err)
		return
	}

	if r.cfg.SkipDetection {
		logger.Info(ctx, "Detection method update skipped by configuration")
	} else if err = r.updateDetection(ctx, deploymentType, contentVersion); err != nil {
		logger.WarnKV(ctx, "Detection method update failed", "error", err)
	}

	if err = r.client.RedistributeContent(ctx, deploymentType); err != nil {
		logger.WarnKV(ctx, "Content redistribution failed", "error", err)
		return
	}

	logger.Info(ctx, "Content redistribution requested")
}

// updateDetection replaces the deployment type's existing simple-setting
// detection clause with a fresh "installed version >= contentVersion" clause.
func (r *runner) updateDetection(ctx context.Context, deploymentType *catalog.DeploymentType, contentVersion string) error {
	logicalName, err := catalog.SimpleSettingLogicalName(deploymentType.Descriptor)
	if err != nil {
		return err
	}

	clause, err := catalog.NewOfficeVersionClause(contentVersion)
	if err != nil {
		return err
	}

	if err = r.client.ReplaceDetectionClause(ctx, deploymentType, logicalName, clause); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Detection clause replaced", "logical_name", logicalName, "version", contentVersion)

	return nil
}

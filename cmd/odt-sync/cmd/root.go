package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/odt-sync/internal/config"
	"github.com/oshokin/odt-sync/internal/logger"
	"github.com/oshokin/odt-sync/internal/service/refresher"
	"github.com/oshokin/odt-sync/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// Flag overrides for the most commonly adjusted settings.
	packagePath     string
	applicationName string
	downloadConfig  string
	skipDetection   bool
	logLevel        string

	// rootCmd represents the base command refreshing the package source and
	// synchronizing the catalog.
	rootCmd = &cobra.Command{
		Use:   "odt-sync",
		Short: "Refresh a deployment-tool package source and sync the catalog",
		Long: "Download the latest deployment tool, pull updated installer content into " +
			"the package directory, prune the superseded content snapshot, and update " +
			"the management catalog's detection rule and distribution points.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			// Validation happens inside the refresher, after flag overrides.
			cfg, err := config.Read(configPath)
			if err != nil {
				return err
			}

			applyFlagOverrides(cmd, cfg)

			return refresher.Run(ctx, &refresher.Options{Config: cfg})
		},
	}
)

// applyFlagOverrides lets explicitly set flags win over the YAML settings.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("package-path") {
		cfg.PackagePath = packagePath
	}

	if cmd.Flags().Changed("application") {
		cfg.ApplicationName = applicationName
	}

	if cmd.Flags().Changed("download-config") {
		cfg.DownloadConfig = downloadConfig
	}

	if cmd.Flags().Changed("skip-detection") {
		cfg.SkipDetection = skipDetection
	}
}

// Execute runs the odt-sync CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&packagePath, "package-path", "",
		"package directory holding setup.exe and office/data")
	rootCmd.Flags().StringVar(&applicationName, "application", "",
		"catalog application display name")
	rootCmd.Flags().StringVar(&downloadConfig, "download-config", "",
		"deployment-tool XML configuration file name")
	rootCmd.Flags().BoolVar(&skipDetection, "skip-detection", true,
		"leave the catalog detection clause untouched")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error, fatal)")
}

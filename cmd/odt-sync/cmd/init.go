package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/odt-sync/internal/config"
)

// initCmd writes a settings file with defaults as a starting point.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: "Write a configuration file populated with defaults. Package path, " +
		"application name and catalog URL must be filled in before the first run.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists, refusing to overwrite", configPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}

		cfg := config.Default()
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)

		return nil
	},
}

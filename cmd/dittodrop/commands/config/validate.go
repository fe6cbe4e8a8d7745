package config

import (
	"fmt"

	"github.com/marmos91/dittodrop/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load and validate a DittoDrop configuration file.

Examples:
  # Validate the default config file
  dittodrop config validate

  # Validate a specific file
  dittodrop config validate --config /etc/dittodrop/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	source := configPath
	if source == "" {
		source = config.GetDefaultConfigPath()
	}
	fmt.Printf("Configuration is valid: %s\n", source)
	fmt.Printf("  server:  %s:%d (%d workers)\n", cfg.Server.BindAddress, cfg.Server.Port, cfg.Server.MaxWorkers)
	fmt.Printf("  storage: %s\n", cfg.Storage.Root)
	fmt.Printf("  users:   %s\n", cfg.Auth.CredentialsFile)
	return nil
}

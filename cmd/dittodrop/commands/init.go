package commands

import (
	"fmt"
	"os"

	"github.com/marmos91/dittodrop/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample DittoDrop configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/dittodrop/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  dittodrop init

  # Initialize with custom path
  dittodrop init --config /etc/dittodrop/config.yaml

  # Force overwrite existing config
  dittodrop init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath()

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Add a user with: dittodrop user add <username>")
	fmt.Println("  2. Start the server with: dittodrop start")
	fmt.Printf("  3. Or specify custom config: dittodrop start --config %s\n", path)
	return nil
}

// Package user implements the credential file management subcommands.
package user

import (
	"fmt"

	"github.com/marmos91/dittodrop/pkg/config"
	"github.com/marmos91/dittodrop/pkg/credentials"
	"github.com/spf13/cobra"
)

// Cmd is the user subcommand.
var Cmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long: `Manage the users allowed to log in.

Users live in the credential file named by auth.credentials_file, one
username:password pair per line. A running server picks up changes on the
next login attempt.

Subcommands:
  add     Add a user
  list    List users
  remove  Remove a user`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(removeCmd)
}

// openStore returns the credential file configured for cmd.
func openStore(cmd *cobra.Command) (*credentials.FileStore, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return credentials.NewFileStore(cfg.Auth.CredentialsFile), nil
}

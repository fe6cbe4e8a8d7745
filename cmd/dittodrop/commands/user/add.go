package user

import (
	"fmt"

	"github.com/marmos91/dittodrop/internal/cli/prompt"
	"github.com/marmos91/dittodrop/pkg/credentials"
	"github.com/spf13/cobra"
)

var addPassword string

var addCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a user",
	Long: `Add a user to the credential file.

The password is prompted for twice unless --password is given.

Examples:
  # Add a user interactively
  dittodrop user add alice

  # Add a user non-interactively
  dittodrop user add alice --password wonderland`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addPassword, "password", "p", "", "Password (prompted for when empty)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	username := args[0]
	if err := credentials.ValidateUsername(username); err != nil {
		return fmt.Errorf("%w: %q", err, username)
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	password := addPassword
	if password == "" {
		password, err = prompt.NewPassword(credentials.ValidateSecret)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
	}

	if err := store.Add(username, password); err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}

	fmt.Printf("User %q added to %s\n", username, store.Path())
	return nil
}

package user

import (
	"fmt"

	"github.com/marmos91/dittodrop/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:     "remove <username>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a user",
	Long: `Remove a user from the credential file.

Files the user uploaded stay in the storage area. You will be prompted
for confirmation unless --force is specified.

Examples:
  # Remove user with confirmation
  dittodrop user remove alice

  # Remove user without confirmation
  dittodrop user remove alice --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Skip confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	username := args[0]

	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	ok, err := prompt.Confirm(fmt.Sprintf("Remove user %q", username), removeForce)
	if err != nil {
		if prompt.IsAborted(err) {
			return nil
		}
		return err
	}
	if !ok {
		fmt.Println("Aborted.")
		return nil
	}

	if err := store.Remove(username); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	fmt.Printf("User %q removed\n", username)
	return nil
}

package commands

import (
	"errors"
	"fmt"

	"github.com/marmos91/dittodrop/cmd/dropctl/cmdutil"
	"github.com/marmos91/dittodrop/pkg/client"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a file",
	Long: `Delete a file from your storage area.

Examples:
  dropctl delete -u alice report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	return cmdutil.WithSession(cmd.Context(), func(c *client.Client) error {
		if err := c.Delete(name); err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("%s: %w", name, err)
			}
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Deleted %s\n", name)
		return nil
	})
}

package user

import (
	"fmt"
	"os"

	"github.com/marmos91/dittodrop/internal/cli/output"
	"github.com/marmos91/dittodrop/pkg/credentials"
	"github.com/spf13/cobra"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Long: `List the users in the credential file. Passwords are never shown.

Examples:
  # List users as table
  dittodrop user list

  # List as JSON
  dittodrop user list -o json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

type userView struct {
	Username string `json:"username" yaml:"username"`
}

// UserList is a list of users for table rendering.
type UserList []userView

// Headers implements TableRenderer.
func (ul UserList) Headers() []string {
	return []string{"USERNAME"}
}

// Rows implements TableRenderer.
func (ul UserList) Rows() [][]string {
	rows := make([][]string, 0, len(ul))
	for _, u := range ul {
		rows = append(rows, []string{u.Username})
	}
	return rows
}

func newUserList(entries []credentials.Entry) UserList {
	users := make(UserList, 0, len(entries))
	for _, e := range entries {
		users = append(users, userView{Username: e.Username})
	}
	return users
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	entries, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(entries) == 0 && format == output.FormatTable {
		fmt.Println("No users found.")
		return nil
	}
	return output.Print(os.Stdout, format, newUserList(entries))
}

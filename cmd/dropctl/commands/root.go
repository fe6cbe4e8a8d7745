// Package commands implements the CLI commands of the dropctl client.
package commands

import (
	"os"
	"time"

	"github.com/marmos91/dittodrop/cmd/dropctl/cmdutil"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dropctl",
	Short: "DittoDrop client",
	Long: `dropctl talks to a DittoDrop server. Every command opens a session,
logs in, runs one operation and exits.

The password is prompted for when --password and DROPCTL_PASSWORD are
both empty.

Use "dropctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.Server, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.User, _ = cmd.Flags().GetString("user")
		cmdutil.Flags.Password, _ = cmd.Flags().GetString("password")
		cmdutil.Flags.Timeout, _ = cmd.Flags().GetDuration("timeout")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
		cmdutil.InitLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringP("server", "s", "127.0.0.1:5000", "Server address (host:port)")
	rootCmd.PersistentFlags().StringP("user", "u", "", "Username (prompted for when empty)")
	rootCmd.PersistentFlags().String("password", envOr("DROPCTL_PASSWORD", ""), "Password")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Read timeout, 0 disables it")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(deleteCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/dittodrop/cmd/dropctl/cmdutil"
	"github.com/marmos91/dittodrop/internal/bytesize"
	"github.com/marmos91/dittodrop/pkg/client"
	"github.com/spf13/cobra"
)

var uploadName string

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file",
	Long: `Upload a local file to your storage area. An existing file with the
same name is replaced.

Examples:
  # Upload under the local file name
  dropctl upload -u alice ./report.pdf

  # Upload under another name
  dropctl upload -u alice ./report.pdf --name q3.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "Name on the server (default: base name of path)")
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	name := uploadName
	if name == "" {
		name = filepath.Base(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return cmdutil.WithSession(cmd.Context(), func(c *client.Client) error {
		res, err := c.Upload(name, f)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		fmt.Printf("Uploaded %s (%s in %d chunks)\n", name, bytesize.ByteSize(res.Bytes), res.Chunks)
		if res.Retransmits > 0 {
			fmt.Printf("  %d chunks retransmitted, %d unconfirmed\n", res.Retransmits, res.Unconfirmed)
		}
		return nil
	})
}

package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/marmos91/dittodrop/cmd/dropctl/cmdutil"
	"github.com/marmos91/dittodrop/internal/bytesize"
	"github.com/marmos91/dittodrop/pkg/client"
	"github.com/spf13/cobra"
)

var (
	downloadOutput  string
	downloadPreview bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Download or preview a file",
	Long: `Download a file from your storage area.

With --preview only the first chunk (up to 1 KiB) is fetched and printed
to stdout.

Examples:
  # Download into the current directory
  dropctl download -u alice report.pdf

  # Download to another path
  dropctl download -u alice report.pdf -o /tmp/report.pdf

  # Write to stdout
  dropctl download -u alice notes.txt -o -

  # Peek at the start of a file
  dropctl download -u alice notes.txt --preview`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Destination path, - for stdout (default: ./<name>)")
	downloadCmd.Flags().BoolVar(&downloadPreview, "preview", false, "Fetch only the first chunk and print it")
}

func runDownload(cmd *cobra.Command, args []string) error {
	name := args[0]

	if downloadPreview {
		return cmdutil.WithSession(cmd.Context(), func(c *client.Client) error {
			if _, err := c.Preview(name, os.Stdout); err != nil {
				return fmt.Errorf("preview failed: %w", err)
			}
			fmt.Println()
			return nil
		})
	}

	dest := downloadOutput
	if dest == "" {
		dest = name
	}

	return cmdutil.WithSession(cmd.Context(), func(c *client.Client) error {
		var (
			w       io.Writer = os.Stdout
			tmp     *os.File
			tmpPath string
		)
		if dest != "-" {
			var err error
			tmp, err = os.CreateTemp(filepath.Dir(dest), ".dropctl-*")
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			tmpPath = tmp.Name()
			defer func() {
				_ = tmp.Close()
				_ = os.Remove(tmpPath)
			}()
			w = tmp
		}

		res, err := c.Download(name, w)
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		if tmpPath == "" {
			return nil
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		if err := os.Rename(tmpPath, dest); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		fmt.Printf("Downloaded %s to %s (%s)\n", name, dest, bytesize.ByteSize(res.Bytes))
		return nil
	})
}

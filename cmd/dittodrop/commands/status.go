package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/marmos91/dittodrop/internal/cli/output"
	"github.com/marmos91/dittodrop/pkg/config"
	"github.com/marmos91/dittodrop/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	statusOutput string
	statusHost   string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show counters of a running server",
	Long: `Query the status endpoint of a running DittoDrop server.

The status server only runs when metrics.enabled is true; it listens on
metrics.port.

Examples:
  # Show counters as a table
  dittodrop status

  # Show as JSON
  dittodrop status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
	statusCmd.Flags().StringVar(&statusHost, "host", "127.0.0.1", "Host the status server runs on")
}

type statusResponse struct {
	Status string           `json:"status"`
	Data   metrics.Snapshot `json:"data"`
	Error  string           `json:"error,omitempty"`
}

type statusTable metrics.Snapshot

func (s statusTable) Headers() []string {
	return []string{"ACTIVE", "TOTAL", "TRANSFERS"}
}

func (s statusTable) Rows() [][]string {
	return [][]string{{
		strconv.FormatInt(s.ActiveConnections, 10),
		strconv.FormatInt(s.TotalConnections, 10),
		strconv.FormatInt(s.FileTransfers, 10),
	}}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	url := "http://" + net.JoinHostPort(statusHost, strconv.Itoa(cfg.Metrics.Port)) + "/stats"

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable at %s (is metrics.enabled set?): %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("invalid status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status request failed: %s %s", resp.Status, body.Error)
	}

	if format == output.FormatTable {
		return output.PrintTable(os.Stdout, statusTable(body.Data))
	}
	return output.Print(os.Stdout, format, body.Data)
}

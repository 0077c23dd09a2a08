// Package status provides the `fabric status` command: a one-shot dump
// of the running daemon's component statuses and dependency graph.
package status

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusforge/fabric/internal/config"
	"github.com/campusforge/fabric/internal/fabric/component"
	"github.com/campusforge/fabric/internal/fabric/graph"
)

var (
	asJSON bool
	asDOT  bool
)

// StatusCmd fetches and prints the daemon's /status payload.
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show component statuses and the dependency graph",
	Long: "Show component statuses and the dependency graph.\n\n" +
		"Queries the running daemon's /status endpoint, which reports the " +
		"ServiceHealthDashboard's component states, the dependency graph, " +
		"and the integration health visualization payload.",
	RunE: runStatus,
}

func init() {
	StatusCmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON payload")
	StatusCmd.Flags().BoolVar(&asDOT, "dot", false, "Print the dependency graph as Graphviz DOT")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	url := fmt.Sprintf("http://%s:%d/status", cfg.Daemon.HTTPBind, cfg.Daemon.HTTPPort)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("fabric daemon not reachable at %s; is it running? %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read status response; %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status request failed: %s: %s", resp.Status, string(body))
	}

	if asJSON {
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	}

	if asDOT {
		var payload struct {
			DependencyGraph map[component.ID][]component.ID `json:"dependency_graph"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("failed to parse status response; %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.DOT(payload.DependencyGraph))
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("failed to parse status response; %w", err)
	}

	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format status response; %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	return nil
}

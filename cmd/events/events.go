// Package events provides the `fabric events` command family.
package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/campusforge/fabric/internal/cmdutil"
	"github.com/campusforge/fabric/internal/config"
	fabricevents "github.com/campusforge/fabric/internal/fabric/events"
)

// EventsCmd is the parent command for event-related operations.
var EventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect events flowing through the fabric's event bus",
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream events from the running daemon as they are published",
	Long: "Stream events from the running daemon as they are published.\n\n" +
		"Connects to the daemon's /events endpoint and prints each event as " +
		"newline-delimited JSON until interrupted.",
	RunE: runTail,
}

var replayFile string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Print events recorded in the durable event store",
	Long: "Print events recorded in the durable event store.\n\n" +
		"Reads the JSON Lines event file directly (no daemon required) and " +
		"prints each persisted event. Defaults to the configured " +
		"event_bus.persistence_path.",
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFile, "file", "", "Event store file to read (defaults to the configured path)")
	EventsCmd.AddCommand(tailCmd)
	EventsCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := replayFile
	if path == "" {
		path = config.Get().EventBus.PersistencePath
	}
	resolved, err := cmdutil.ResolvePath(path)
	if err != nil {
		return fmt.Errorf("failed to resolve event store path %q; %w", path, err)
	}
	if resolved == "" {
		return fmt.Errorf("no event store path configured; set event_bus.persistence_path or pass --file")
	}

	store, err := fabricevents.NewFileStore(resolved)
	if err != nil {
		return fmt.Errorf("failed to open event store %s; %w", resolved, err)
	}
	defer store.Close()

	recorded, err := store.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read event store %s; %w", resolved, err)
	}

	out := cmd.OutOrStdout()
	for _, event := range recorded {
		line, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintln(out, string(line))
	}
	return nil
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	url := fmt.Sprintf("http://%s:%d/events", cfg.Daemon.HTTPBind, cfg.Daemon.HTTPPort)

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fabric daemon not reachable at %s; is it running? %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("events stream failed: %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	out := cmd.OutOrStdout()
	for scanner.Scan() {
		var event map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			fmt.Fprintln(out, scanner.Text())
			continue
		}
		pretty, _ := json.Marshal(event)
		fmt.Fprintln(out, string(pretty))
	}
	return scanner.Err()
}

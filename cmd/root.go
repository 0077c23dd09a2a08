package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/campusforge/fabric/cmd/dashboard"
	"github.com/campusforge/fabric/cmd/daemon"
	"github.com/campusforge/fabric/cmd/events"
	"github.com/campusforge/fabric/cmd/status"
	"github.com/campusforge/fabric/cmd/version"
	"github.com/campusforge/fabric/internal/config"
	"github.com/campusforge/fabric/internal/logging"
)

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

// Quiet suppresses non-error output when true
var Quiet bool

var fabricCmd = &cobra.Command{
	Use:   "fabric",
	Short: "An in-process integration fabric for coordinating interdependent services",
	Long: "fabric runs the integration fabric: a component registry and dependency graph, " +
		"an event bus, a status tracker with cascading health propagation, a service health " +
		"dashboard, a transaction logger, and an interface contract registry, assembled into " +
		"one process that embedding services can register against.\n\n" +
		"Run `fabric daemon` to start the long-lived process, or use `fabric status`, " +
		"`fabric events tail`, and `fabric dashboard` to inspect a running instance.",
	PersistentPreRunE: runInitialize,
}

func init() {
	logManager = logging.NewManager()
	slog.SetDefault(logManager.Logger())

	fabricCmd.PersistentFlags().BoolVarP(&Quiet, "quiet", "q", false, "Suppress non-error output")

	fabricCmd.AddCommand(version.VersionCmd)
	fabricCmd.AddCommand(daemon.DaemonCmd)
	fabricCmd.AddCommand(status.StatusCmd)
	fabricCmd.AddCommand(events.EventsCmd)
	fabricCmd.AddCommand(dashboard.DashboardCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	if err := config.Init(); err != nil {
		return err
	}

	cfg := config.Get()
	logFile := config.ExpandPath(cfg.LogFile)
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logging.DefaultLevel
		if cfg.LogLevel != "" {
			logger.Warn("invalid log level configured, using default", "configured", cfg.LogLevel, "default", "info")
		}
	}

	if err := logManager.Upgrade(logFile, level, logging.DefaultRotationConfig()); err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
		// Don't return error - continue with bootstrap mode
	}

	return nil
}

func Execute() error {
	fabricCmd.SilenceErrors = true
	fabricCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	err := fabricCmd.Execute()

	if err != nil {
		cmd, _, _ := fabricCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = fabricCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Printf("\n")
			cmd.SetOut(os.Stdout)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}

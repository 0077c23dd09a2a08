package config

import "github.com/spf13/viper"

// Default configuration values.
const (
	// Logging defaults.
	DefaultLogLevel = "info"
	DefaultLogFile  = "~/.config/fabric/fabric.log"

	// Daemon configuration defaults.
	DefaultDaemonHTTPPort        = 7700
	DefaultDaemonHTTPBind        = "127.0.0.1"
	DefaultDaemonShutdownTimeout = 30 // seconds
	DefaultDaemonPIDFile         = "~/.config/fabric/daemon.pid"
	DefaultDaemonMetricsInterval = 15 // seconds

	// Event bus defaults.
	DefaultEventBusBufferSize      = 100
	DefaultEventBusPersistencePath = "~/.config/fabric/events.jsonl"

	// Status tracker defaults.
	DefaultStatusHistoryLimit = 1000

	// Integration health defaults.
	DefaultIntegrationHealthPollingInterval = 60 // seconds

	// Transaction logger defaults.
	DefaultTransactionLoggerMaxTransactions = 1000
	DefaultTransactionLoggerAutoPrune       = true
	DefaultTransactionLoggerArchivePath     = "~/.config/fabric/transactions.db"
)

// NewDefaultConfig returns a Config populated with all default values.
func NewDefaultConfig() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		LogFile:  DefaultLogFile,
		Daemon: DaemonConfig{
			HTTPPort:        DefaultDaemonHTTPPort,
			HTTPBind:        DefaultDaemonHTTPBind,
			ShutdownTimeout: DefaultDaemonShutdownTimeout,
			PIDFile:         DefaultDaemonPIDFile,
			Metrics: MetricsConfig{
				CollectionInterval: DefaultDaemonMetricsInterval,
			},
		},
		EventBus: EventBusConfig{
			BufferSize:      DefaultEventBusBufferSize,
			PersistencePath: DefaultEventBusPersistencePath,
		},
		Status: StatusConfig{
			HistoryLimit: DefaultStatusHistoryLimit,
		},
		IntegrationHealth: IntegrationHealthConfig{
			PollingIntervalSeconds: DefaultIntegrationHealthPollingInterval,
		},
		TransactionLogger: TransactionLoggerConfig{
			MaxTransactions: DefaultTransactionLoggerMaxTransactions,
			AutoPrune:       DefaultTransactionLoggerAutoPrune,
			ArchivePath:     DefaultTransactionLoggerArchivePath,
		},
	}
}

// setDefaults registers all default configuration values with viper.
// Called during Init() before reading config files.
func setDefaults() {
	viper.SetDefault("log_level", DefaultLogLevel)
	viper.SetDefault("log_file", DefaultLogFile)

	viper.SetDefault("daemon.http_port", DefaultDaemonHTTPPort)
	viper.SetDefault("daemon.http_bind", DefaultDaemonHTTPBind)
	viper.SetDefault("daemon.shutdown_timeout", DefaultDaemonShutdownTimeout)
	viper.SetDefault("daemon.pid_file", DefaultDaemonPIDFile)
	viper.SetDefault("daemon.metrics.collection_interval", DefaultDaemonMetricsInterval)

	viper.SetDefault("event_bus.buffer_size", DefaultEventBusBufferSize)
	viper.SetDefault("event_bus.persistence_path", DefaultEventBusPersistencePath)

	viper.SetDefault("status.history_limit", DefaultStatusHistoryLimit)

	viper.SetDefault("integration_health.polling_interval_seconds", DefaultIntegrationHealthPollingInterval)

	viper.SetDefault("transaction_logger.max_transactions", DefaultTransactionLoggerMaxTransactions)
	viper.SetDefault("transaction_logger.auto_prune", DefaultTransactionLoggerAutoPrune)
	viper.SetDefault("transaction_logger.archive_path", DefaultTransactionLoggerArchivePath)
}

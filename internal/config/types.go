package config

// Config is the root configuration structure for the fabric daemon.
type Config struct {
	LogLevel           string                   `yaml:"log_level" mapstructure:"log_level"`
	LogFile            string                   `yaml:"log_file" mapstructure:"log_file"`
	Daemon             DaemonConfig             `yaml:"daemon" mapstructure:"daemon"`
	EventBus           EventBusConfig           `yaml:"event_bus" mapstructure:"event_bus"`
	Status             StatusConfig             `yaml:"status" mapstructure:"status"`
	IntegrationHealth  IntegrationHealthConfig  `yaml:"integration_health" mapstructure:"integration_health"`
	TransactionLogger  TransactionLoggerConfig  `yaml:"transaction_logger" mapstructure:"transaction_logger"`
}

// DaemonConfig holds daemon process configuration.
type DaemonConfig struct {
	HTTPPort        int           `yaml:"http_port" mapstructure:"http_port"`
	HTTPBind        string        `yaml:"http_bind" mapstructure:"http_bind"`
	ShutdownTimeout int           `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	PIDFile         string        `yaml:"pid_file" mapstructure:"pid_file"`
	Metrics         MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// MetricsConfig holds metrics collection configuration.
type MetricsConfig struct {
	CollectionInterval int `yaml:"collection_interval" mapstructure:"collection_interval"`
}

// EventBusConfig holds event bus configuration.
type EventBusConfig struct {
	BufferSize      int    `yaml:"buffer_size" mapstructure:"buffer_size"`
	PersistencePath string `yaml:"persistence_path" mapstructure:"persistence_path"`
}

// StatusConfig holds status tracker configuration.
type StatusConfig struct {
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit"`
}

// IntegrationHealthConfig holds health monitor configuration.
type IntegrationHealthConfig struct {
	PollingIntervalSeconds int `yaml:"polling_interval_seconds" mapstructure:"polling_interval_seconds"`
}

// TransactionLoggerConfig holds transaction logger configuration.
type TransactionLoggerConfig struct {
	MaxTransactions int    `yaml:"max_transactions" mapstructure:"max_transactions"`
	AutoPrune       bool   `yaml:"auto_prune" mapstructure:"auto_prune"`
	ArchivePath     string `yaml:"archive_path" mapstructure:"archive_path"`
}

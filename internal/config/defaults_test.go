package config

import "testing"

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.LogFile != DefaultLogFile {
		t.Errorf("LogFile = %q, want %q", cfg.LogFile, DefaultLogFile)
	}

	if cfg.Daemon.HTTPPort != DefaultDaemonHTTPPort {
		t.Errorf("Daemon.HTTPPort = %d, want %d", cfg.Daemon.HTTPPort, DefaultDaemonHTTPPort)
	}
	if cfg.Daemon.HTTPBind != DefaultDaemonHTTPBind {
		t.Errorf("Daemon.HTTPBind = %q, want %q", cfg.Daemon.HTTPBind, DefaultDaemonHTTPBind)
	}
	if cfg.Daemon.ShutdownTimeout != DefaultDaemonShutdownTimeout {
		t.Errorf("Daemon.ShutdownTimeout = %d, want %d", cfg.Daemon.ShutdownTimeout, DefaultDaemonShutdownTimeout)
	}
	if cfg.Daemon.PIDFile != DefaultDaemonPIDFile {
		t.Errorf("Daemon.PIDFile = %q, want %q", cfg.Daemon.PIDFile, DefaultDaemonPIDFile)
	}
	if cfg.Daemon.Metrics.CollectionInterval != DefaultDaemonMetricsInterval {
		t.Errorf("Daemon.Metrics.CollectionInterval = %d, want %d", cfg.Daemon.Metrics.CollectionInterval, DefaultDaemonMetricsInterval)
	}

	if cfg.EventBus.BufferSize != DefaultEventBusBufferSize {
		t.Errorf("EventBus.BufferSize = %d, want %d", cfg.EventBus.BufferSize, DefaultEventBusBufferSize)
	}
	if cfg.EventBus.PersistencePath != DefaultEventBusPersistencePath {
		t.Errorf("EventBus.PersistencePath = %q, want %q", cfg.EventBus.PersistencePath, DefaultEventBusPersistencePath)
	}

	if cfg.Status.HistoryLimit != DefaultStatusHistoryLimit {
		t.Errorf("Status.HistoryLimit = %d, want %d", cfg.Status.HistoryLimit, DefaultStatusHistoryLimit)
	}

	if cfg.IntegrationHealth.PollingIntervalSeconds != DefaultIntegrationHealthPollingInterval {
		t.Errorf("IntegrationHealth.PollingIntervalSeconds = %d, want %d", cfg.IntegrationHealth.PollingIntervalSeconds, DefaultIntegrationHealthPollingInterval)
	}

	if cfg.TransactionLogger.MaxTransactions != DefaultTransactionLoggerMaxTransactions {
		t.Errorf("TransactionLogger.MaxTransactions = %d, want %d", cfg.TransactionLogger.MaxTransactions, DefaultTransactionLoggerMaxTransactions)
	}
	if cfg.TransactionLogger.AutoPrune != DefaultTransactionLoggerAutoPrune {
		t.Errorf("TransactionLogger.AutoPrune = %v, want %v", cfg.TransactionLogger.AutoPrune, DefaultTransactionLoggerAutoPrune)
	}
	if cfg.TransactionLogger.ArchivePath != DefaultTransactionLoggerArchivePath {
		t.Errorf("TransactionLogger.ArchivePath = %q, want %q", cfg.TransactionLogger.ArchivePath, DefaultTransactionLoggerArchivePath)
	}
}

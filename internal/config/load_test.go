package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig_ReturnsTypedConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `log_level: debug
log_file: /var/log/test.log
daemon:
  http_port: 8080
  http_bind: "0.0.0.0"
  shutdown_timeout: 60
  pid_file: /tmp/test.pid
  metrics:
    collection_interval: 30
event_bus:
  buffer_size: 200
  persistence_path: /tmp/events.jsonl
status:
  history_limit: 500
integration_health:
  polling_interval_seconds: 30
transaction_logger:
  max_transactions: 2000
  auto_prune: false
  archive_path: /tmp/transactions.db
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Daemon.HTTPPort != 8080 {
		t.Errorf("Daemon.HTTPPort = %d, want %d", cfg.Daemon.HTTPPort, 8080)
	}
	if cfg.EventBus.BufferSize != 200 {
		t.Errorf("EventBus.BufferSize = %d, want %d", cfg.EventBus.BufferSize, 200)
	}
	if cfg.Status.HistoryLimit != 500 {
		t.Errorf("Status.HistoryLimit = %d, want %d", cfg.Status.HistoryLimit, 500)
	}
	if cfg.IntegrationHealth.PollingIntervalSeconds != 30 {
		t.Errorf("IntegrationHealth.PollingIntervalSeconds = %d, want %d", cfg.IntegrationHealth.PollingIntervalSeconds, 30)
	}
	if cfg.TransactionLogger.MaxTransactions != 2000 {
		t.Errorf("TransactionLogger.MaxTransactions = %d, want %d", cfg.TransactionLogger.MaxTransactions, 2000)
	}
	if cfg.TransactionLogger.AutoPrune {
		t.Error("TransactionLogger.AutoPrune = true, want false")
	}
}

func TestLoad_InvalidConfig_ReturnsValidationError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `daemon:
  http_port: 99999
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	_, err := LoadFromPath(configPath)
	if err == nil {
		t.Fatal("LoadFromPath() expected error for invalid port")
	}

	if !IsValidationError(err) {
		t.Errorf("expected validation error, got %T: %v", err, err)
	}
}

func TestLoad_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("LoadFromPath() expected error for missing file")
	}
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `invalid: [yaml: content`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	_, err := LoadFromPath(configPath)
	if err == nil {
		t.Fatal("LoadFromPath() expected error for invalid YAML")
	}
}

func TestLoadWithDefaults_ReturnsDefaultConfig(t *testing.T) {
	cfg := LoadWithDefaults()

	if cfg == nil {
		t.Fatal("LoadWithDefaults() returned nil")
	}

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.Daemon.HTTPPort != DefaultDaemonHTTPPort {
		t.Errorf("Daemon.HTTPPort = %d, want %d", cfg.Daemon.HTTPPort, DefaultDaemonHTTPPort)
	}
	if cfg.TransactionLogger.MaxTransactions != DefaultTransactionLoggerMaxTransactions {
		t.Errorf("TransactionLogger.MaxTransactions = %d, want %d", cfg.TransactionLogger.MaxTransactions, DefaultTransactionLoggerMaxTransactions)
	}
}

func TestLoad_UsesViperDefaults_WhenKeysNotInFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `log_level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config; %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}

	if cfg.Daemon.HTTPPort != DefaultDaemonHTTPPort {
		t.Errorf("Daemon.HTTPPort = %d, want default %d", cfg.Daemon.HTTPPort, DefaultDaemonHTTPPort)
	}
	if cfg.TransactionLogger.MaxTransactions != DefaultTransactionLoggerMaxTransactions {
		t.Errorf("TransactionLogger.MaxTransactions = %d, want default %d", cfg.TransactionLogger.MaxTransactions, DefaultTransactionLoggerMaxTransactions)
	}
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnFileChange(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("daemon:\n  http_port: 8080\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("FABRIC_CONFIG_DIR", tmpDir)
	Reset()

	if err := Init(); err != nil {
		t.Fatalf("Init() returned error: %v", err)
	}

	w, err := NewWatcher(configPath, WithDebounceWindow(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() returned error: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(configPath, []byte("daemon:\n  http_port: 9999\n"), 0644); err != nil {
		t.Fatalf("failed to update config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if Get().Daemon.HTTPPort == 9999 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Get().Daemon.HTTPPort = %d after file change, want 9999", Get().Daemon.HTTPPort)
}

func TestWatcher_StopIsIdempotentSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("log_level: info\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	w, err := NewWatcher(configPath)
	if err != nil {
		t.Fatalf("NewWatcher() returned error: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() returned error: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("second Stop() returned error: %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/loomtrace/loomtrace/internal/ingest"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Export.Target != "none" {
		t.Errorf("Export.Target = %q, want %q", cfg.Export.Target, "none")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loomtrace.yaml")
	content := `
export:
  target: chrome-trace
  chrome_trace_path: /tmp/trace.json
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Export.Target != "chrome-trace" {
		t.Errorf("Export.Target = %q, want %q", cfg.Export.Target, "chrome-trace")
	}
	if cfg.Export.ChromeTracePath != "/tmp/trace.json" {
		t.Errorf("ChromeTracePath = %q, want %q", cfg.Export.ChromeTracePath, "/tmp/trace.json")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	// Untouched sections should retain their defaults.
	if cfg.Metric.Addr != ":9090" {
		t.Errorf("Metric.Addr = %q, want %q", cfg.Metric.Addr, ":9090")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "loomtrace.yaml")
	content := "export:\n  target: chrome-trace\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("LOOMTRACE_EXPORT_TARGET", "otlp")
	t.Setenv("LOOMTRACE_EXPORT_OTLP_ENDPOINT", "collector:4318")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Export.Target != "otlp" {
		t.Errorf("Export.Target = %q, want %q (env should override file)", cfg.Export.Target, "otlp")
	}
	if cfg.Export.OTLP.Endpoint != "collector:4318" {
		t.Errorf("Export.OTLP.Endpoint = %q, want %q", cfg.Export.OTLP.Endpoint, "collector:4318")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("LOOMTRACE_EXPORT_TARGET", "not-a-real-target")

	if _, err := Load(""); err == nil {
		t.Fatal("Load() should propagate Verify() failure for an invalid target")
	}
}

func TestEOFPolicyMapping(t *testing.T) {
	cfg := Default()
	cfg.Ingest.EOFPolicy = "sleep_retry"
	if cfg.EOFPolicy() != ingest.SleepAndRetryOnEOF {
		t.Errorf("EOFPolicy() = %v, want SleepAndRetryOnEOF", cfg.EOFPolicy())
	}

	cfg.Ingest.EOFPolicy = "stop"
	if cfg.EOFPolicy() != ingest.StopOnEOF {
		t.Errorf("EOFPolicy() = %v, want StopOnEOF", cfg.EOFPolicy())
	}
}

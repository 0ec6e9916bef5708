// Package config defines loomtrace's application configuration structure.
package config

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// AppConfig is the root configuration for loomtrace.
type AppConfig struct {
	Ingest IngestSection `koanf:"ingest"`
	Export ExportSection `koanf:"export"`
	Log    LogSection    `koanf:"log"`
	Metric MetricSection `koanf:"metric"`
}

// IngestSection configures event-log ingestion.
type IngestSection struct {
	// EOFPolicy selects how a tailed source reacts to reaching end of
	// stream: "stop" (batch-like, one pass) or "sleep_retry" (tail -f
	// style, keep polling for more bytes).
	EOFPolicy string `koanf:"eof_policy"`

	// OriginTimestampOverride, if non-zero, is the origin timestamp the
	// interpreter starts from (zero otherwise). A WallClockTime event in
	// the log still recalibrates the origin when it arrives.
	OriginTimestampOverride time.Time `koanf:"origin_timestamp_override"`

	// RNGSeed seeds the generator that invents span ids (and the GC
	// spans' trace ids). Zero means "seed from the runtime's own entropy
	// source".
	RNGSeed uint64 `koanf:"rng_seed"`
}

// ExportSection configures span/metric export.
type ExportSection struct {
	// Target selects the exporter: "none", "chrome-trace", or "otlp".
	Target string `koanf:"target"`

	// ChromeTracePath is the output file for the chrome-trace exporter.
	// Empty means stdout.
	ChromeTracePath string `koanf:"chrome_trace_path"`

	OTLP OTLPSection `koanf:"otlp"`
}

// OTLPSection configures the OpenTelemetry exporter.
type OTLPSection struct {
	Endpoint    string `koanf:"endpoint"`
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// LogSection configures structured logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricSection configures the Prometheus metrics endpoint.
type MetricSection struct {
	Addr string `koanf:"addr"`
}

// Default returns the baseline configuration applied before any file or
// environment overrides are layered on top.
func Default() AppConfig {
	return AppConfig{
		Ingest: IngestSection{
			EOFPolicy: "stop",
		},
		Export: ExportSection{
			Target: "none",
			OTLP: OTLPSection{
				Endpoint:    "localhost:4318",
				Insecure:    true,
				ServiceName: "loomtrace",
			},
		},
		Log: LogSection{
			Level:  "info",
			Format: "text",
		},
		Metric: MetricSection{
			Addr: ":9090",
		},
	}
}

// Verify checks that cfg holds a self-consistent, runnable configuration.
func (cfg *AppConfig) Verify() error {
	switch cfg.Ingest.EOFPolicy {
	case "stop", "sleep_retry":
	default:
		return fmt.Errorf("config: ingest.eof_policy must be %q or %q, got %q", "stop", "sleep_retry", cfg.Ingest.EOFPolicy)
	}

	switch cfg.Export.Target {
	case "none", "chrome-trace", "otlp":
	default:
		return fmt.Errorf("config: export.target must be one of %q, %q, %q, got %q", "none", "chrome-trace", "otlp", cfg.Export.Target)
	}

	if cfg.Export.Target == "otlp" && cfg.Export.OTLP.Endpoint == "" {
		return fmt.Errorf("config: export.otlp.endpoint is required when export.target is %q", "otlp")
	}

	return nil
}

// Sanitize fills in any zero-valued fields that Default would have set,
// so a partially-specified file or env layer still yields a runnable
// configuration.
func (cfg *AppConfig) Sanitize() {
	defaults := Default()

	if cfg.Ingest.EOFPolicy == "" {
		cfg.Ingest.EOFPolicy = defaults.Ingest.EOFPolicy
	}
	if cfg.Export.Target == "" {
		cfg.Export.Target = defaults.Export.Target
	}
	if cfg.Export.OTLP.Endpoint == "" {
		cfg.Export.OTLP.Endpoint = defaults.Export.OTLP.Endpoint
	}
	if cfg.Export.OTLP.ServiceName == "" {
		cfg.Export.OTLP.ServiceName = defaults.Export.OTLP.ServiceName
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Metric.Addr == "" {
		cfg.Metric.Addr = defaults.Metric.Addr
	}
	if cfg.Ingest.RNGSeed == 0 {
		cfg.Ingest.RNGSeed = randomRNGSeed()
	}
}

// randomRNGSeed draws a seed from the runtime's high-entropy source, so
// that an unconfigured RNGSeed does not mean "deterministic" — only an
// explicit non-zero seed does. Falls back to a clock-derived value in
// the vanishingly unlikely case the OS entropy source is unavailable,
// rather than leaving the seed at zero.
func randomRNGSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

package config

import (
	"fmt"

	"github.com/loomtrace/loomtrace/internal/infra/confloader"
	"github.com/loomtrace/loomtrace/internal/ingest"
)

// Load builds an AppConfig from defaults, an optional YAML file, and
// LOOMTRACE_*-prefixed environment variables, in that priority order
// (later sources win).
func Load(filePath string) (AppConfig, error) {
	cfg := Default()

	l := confloader.NewLoader(confloader.WithConfigFile(filePath))
	if err := l.Load(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: load: %w", err)
	}

	cfg.Sanitize()
	if err := cfg.Verify(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// EOFPolicy maps the configured ingest.eof_policy string to the ingest
// package's enum.
func (cfg AppConfig) EOFPolicy() ingest.EOFPolicy {
	if cfg.Ingest.EOFPolicy == "sleep_retry" {
		return ingest.SleepAndRetryOnEOF
	}
	return ingest.StopOnEOF
}

// Package logger provides structured logging for loomtrace.
//
// This package wraps the standard library log/slog:
//
//   - logger.go: handler configuration and initialization
//   - context.go: context-aware logging with logger and ingestion-source
//     propagation
//   - redact.go: sensitive-field redaction for log attributes
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering
//   - Automatic sensitive-value masking
//   - Context propagation for correlating log lines with their source
package logger

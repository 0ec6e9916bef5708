// Package export ships concrete sinks for completed spans and metric
// samples: Discard (the default, always-succeeds no-op), ChromeTraceWriter
// (a chrome://tracing-compatible JSON writer), and OTLP (a real
// OpenTelemetry SDK exporter, grounded on ashita-ai-akashi's
// internal/telemetry package).
package export

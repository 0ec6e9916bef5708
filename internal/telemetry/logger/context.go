package logger

import "context"

type contextKey string

const (
	loggerKey contextKey = "loomtrace.logger"
	sourceKey contextKey = "loomtrace.source"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context, or the default logger if
// none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithSource adds the ingestion source identifier (a file path or
// "<pipe>") to the context, so every log line from one run of the driver
// can be correlated to it.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext extracts the ingestion source identifier from ctx.
func SourceFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey).(string); ok {
		return s
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger with the
// ingestion source, when present.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if src := SourceFromContext(ctx); src != "" {
		l = l.With("source", src)
	}
	return l
}

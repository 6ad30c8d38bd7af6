// Package otel provides metric instruments, span helpers and a stub for
// OpenTelemetry exporter setup. Without an exporter wired, instruments
// are no-ops, so recording is always safe.
package otel

import (
	"context"
	"log/slog"
)

// ShutdownFunc is called to flush and shut down the trace provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracer returns a no-op shutdown function. Wiring an OTLP exporter
// and TracerProvider is deployment-specific and left to the operator.
func InitTracer(serviceName string) ShutdownFunc {
	slog.Info("otel: no exporter configured, instruments are no-ops", "service", serviceName)
	return func(_ context.Context) error {
		return nil
	}
}

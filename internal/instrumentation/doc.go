// Package instrumentation wires OpenTelemetry metrics and tracing for
// the client core. Metrics can be exported via a Prometheus scrape
// endpoint, OTLP, or stdout; traces via OTLP or stdout. A disabled
// provider hands out no-op recorders so call sites never need nil
// checks.
package instrumentation

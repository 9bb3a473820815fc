// Package telemetry sets up OpenTelemetry tracing and metrics for taskd.
//
// Telemetry is disabled by default: most developers run taskd locally with
// no collector. When enabled, spans and metrics are exported over OTLP
// (gRPC or HTTP/protobuf) to the configured endpoint.
//
// Exporter failures never stop taskd. New records the failure, marks the
// instance degraded, and leaves the global no-op providers in place.
//
//	tel, err := telemetry.New(ctx, &cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer("github.com/fyrsmithlabs/taskd/internal/mcp")
//
// Packages that do not receive a *Telemetry use otel.Tracer and
// otel.Meter, which resolve to the providers New installs globally.
package telemetry

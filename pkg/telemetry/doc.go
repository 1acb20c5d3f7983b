// Package telemetry provides observability for Europa.
//
// # Components
//
//   - metrics: Prometheus metrics for policy loads and evaluations
//   - tracing: OpenTelemetry span helpers with europa.* attribute keys
//
// Both are optional: the policy core never depends on them, and a session
// configured without hooks pays nothing. The host wires them in through
// session options:
//
//	registry := prometheus.NewRegistry()
//	sess := session.New(
//	    session.WithMetrics(metrics.NewPolicyMetrics(registry)),
//	    session.WithTracer(tracing.Tracer()),
//	)
package telemetry

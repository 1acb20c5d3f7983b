// Package tracing defines the OpenTelemetry attribute keys and span
// helpers used across Europa.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies this library in exported spans.
const InstrumentationName = "mercator-hq/europa"

// Attribute keys attached to evaluation spans.
const (
	AttrQueryPath     = "europa.query_path"
	AttrPolicyVersion = "europa.policy_version"
	AttrOutcome       = "europa.outcome"
	AttrRuleCount     = "europa.rule_count"
)

// Span names.
const (
	SpanEvaluate = "europa.evaluate"
	SpanLoad     = "europa.load"
)

// Tracer returns the tracer for this library from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// QueryPath builds the query path span attribute.
func QueryPath(path string) attribute.KeyValue {
	return attribute.String(AttrQueryPath, path)
}

// PolicyVersion builds the policy version span attribute.
func PolicyVersion(version uint64) attribute.KeyValue {
	return attribute.Int64(AttrPolicyVersion, int64(version))
}

// Outcome builds the evaluation outcome span attribute.
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// RuleCount builds the rule count span attribute.
func RuleCount(n int) attribute.KeyValue {
	return attribute.Int(AttrRuleCount, n)
}

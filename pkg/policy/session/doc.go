// Package session owns the mutable slot between policy loads and policy
// evaluations.
//
// A Session holds one immutable compiled snapshot behind an atomic pointer.
// Load parses and compiles off to the side and swaps the snapshot in only
// on success, so a failing load leaves prior evaluate behavior untouched
// and an in-flight evaluate observes either the fully-old or the fully-new
// policy, never a mix. Each successful load bumps the policy version.
//
// Evaluation itself is pure computation; the Session adds the operational
// skin around it: structured logging of loads, optional metrics, optional
// tracing spans, and an optional decision recorder.
package session

// Package compiler turns parsed EPL modules plus an optional external data
// document into an immutable CompiledPolicy ready for evaluation.
//
// Compilation performs, in order:
//
//  1. Reference resolution: import aliases and same-package rule names are
//     rewritten to fully-qualified data references, so the evaluator only
//     ever sees "input", "data", and body-local variables.
//  2. Grouping: rule clauses are grouped by the document path they define
//     (data.<package>.<rule>), with defaults linked to their group.
//  3. Conflict detection: a complete rule may have at most one unconditional
//     clause; a rule path may not be a prefix of another rule path; clause
//     kinds at one path must agree.
//  4. Safety analysis: every variable used in a rule head or inside negation
//     must be bound somewhere in the body.
//  5. Recursion detection: dependency cycles among complete rules are
//     rejected, as are non-monotonic (negated) cycles among partial rules.
//     Monotonic partial-rule cycles are allowed; the evaluator resolves them
//     by fixpoint iteration.
//
// The compiled policy is never mutated after Compile returns; reloading
// means recompiling from scratch and atomically swapping the session's
// policy reference.
package compiler

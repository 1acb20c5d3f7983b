// Package decisionlog persists an append-only audit record of policy
// evaluations.
//
// The store writes to SQLite through sqlx using the pure-Go driver, with
// named queries managed by dotsql from an embedded .sql file. It plugs into
// a session as its Recorder; insert failures are logged, never surfaced to
// the evaluation path. A cron-scheduled Sweeper enforces retention.
package decisionlog

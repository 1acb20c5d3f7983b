package decisionlog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/qustavo/dotsql"
	_ "modernc.org/sqlite"

	"mercator-hq/europa/pkg/policy/session"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// Record is one persisted evaluation decision.
type Record struct {
	ID            string
	CreatedAt     time.Time
	PolicyVersion uint64
	QueryPath     string
	Input         string
	Result        string
	Outcome       string
	Error         string
}

// row mirrors the decisions table; timestamps are unix nanoseconds so the
// driver never has to guess a time encoding.
type row struct {
	ID            string `db:"id"`
	CreatedAt     int64  `db:"created_at"`
	PolicyVersion int64  `db:"policy_version"`
	QueryPath     string `db:"query_path"`
	Input         string `db:"input"`
	Result        string `db:"result"`
	Outcome       string `db:"outcome"`
	Error         string `db:"error"`
}

// Store is a SQLite-backed decision log. It implements session.Recorder.
type Store struct {
	db     *sqlx.DB
	dot    *dotsql.DotSql
	logger *slog.Logger
}

// Open opens (creating if needed) the decision log at path. Use ":memory:"
// for an ephemeral store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open decision log: %w", err)
	}
	// Single writer; SQLite serializes writes anyway and the pure-Go
	// driver returns busy errors under write contention.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping decision log: %w", err)
	}

	dot, err := loadQueries()
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, dot: dot, logger: logger}
	for _, name := range []string{"create-decisions-table", "create-decisions-index"} {
		if _, err := s.exec(context.Background(), name); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return s, nil
}

func loadQueries() (*dotsql.DotSql, error) {
	content, err := queriesFS.ReadFile("queries/decisionlog.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded queries: %w", err)
	}
	dot, err := dotsql.LoadFromString(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse queries: %w", err)
	}
	return dot, nil
}

func (s *Store) exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error) {
	query, err := s.dot.Raw(name)
	if err != nil {
		return nil, fmt.Errorf("query not found: %s", name)
	}
	return s.db.ExecContext(ctx, query, args...)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record implements session.Recorder. Failures are logged and swallowed:
// the audit trail must never fail an evaluation.
func (s *Store) Record(ctx context.Context, d session.Decision) {
	if err := s.Insert(ctx, fromDecision(d)); err != nil {
		s.logger.Error("failed to record decision", "error", err)
	}
}

func fromDecision(d session.Decision) Record {
	rec := Record{
		ID:            uuid.NewString(),
		CreatedAt:     d.Time,
		PolicyVersion: d.PolicyVersion,
		QueryPath:     d.QueryPath,
		Outcome:       d.Outcome,
	}
	if input, err := d.Input.MarshalJSON(); err == nil {
		rec.Input = string(input)
	}
	if result, err := d.Result.MarshalJSON(); err == nil {
		rec.Result = string(result)
	}
	if d.Err != nil {
		rec.Error = d.Err.Error()
	}
	return rec
}

// Insert appends one record. A zero ID gets a fresh uuid; a zero timestamp
// gets the current time.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.exec(ctx, "insert-decision",
		rec.ID,
		rec.CreatedAt.UnixNano(),
		int64(rec.PolicyVersion),
		rec.QueryPath,
		rec.Input,
		rec.Result,
		rec.Outcome,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	query, err := s.dot.Raw("recent-decisions")
	if err != nil {
		return nil, fmt.Errorf("query not found: recent-decisions")
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	records := make([]Record, len(rows))
	for i, r := range rows {
		records[i] = Record{
			ID:            r.ID,
			CreatedAt:     time.Unix(0, r.CreatedAt),
			PolicyVersion: uint64(r.PolicyVersion),
			QueryPath:     r.QueryPath,
			Input:         r.Input,
			Result:        r.Result,
			Outcome:       r.Outcome,
			Error:         r.Error,
		}
	}
	return records, nil
}

// Count returns the number of stored decisions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	query, err := s.dot.Raw("count-decisions")
	if err != nil {
		return 0, fmt.Errorf("query not found: count-decisions")
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, query); err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	return n, nil
}

// Purge deletes records older than cutoff and returns how many went.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx, "purge-decisions", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge decisions: %w", err)
	}
	return res.RowsAffected()
}

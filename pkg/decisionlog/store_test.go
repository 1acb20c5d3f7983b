package decisionlog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/policy/session"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decisions.db")
	store, err := Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_InsertAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		err := store.Insert(ctx, Record{
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
			PolicyVersion: uint64(i + 1),
			QueryPath:     "data.authz.allow",
			Input:         `{"role":"admin"}`,
			Result:        "true",
			Outcome:       session.OutcomeSuccess,
		})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// Newest first.
	if records[0].PolicyVersion != 3 || records[1].PolicyVersion != 2 {
		t.Errorf("unexpected order: %d, %d", records[0].PolicyVersion, records[1].PolicyVersion)
	}
	if records[0].ID == "" || records[0].ID == records[1].ID {
		t.Error("records missing distinct ids")
	}
	if got := records[0].CreatedAt; !got.Equal(base.Add(2 * time.Second)) {
		t.Errorf("timestamp not preserved: %v", got)
	}
}

func TestStore_RecordFromSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	input, _ := document.FromJSONString(`{"role": "admin"}`)
	store.Record(ctx, session.Decision{
		Time:          time.Now(),
		PolicyVersion: 7,
		QueryPath:     "data.authz.allow",
		Input:         input,
		Result:        document.Bool(true),
		Outcome:       session.OutcomeSuccess,
	})
	store.Record(ctx, session.Decision{
		Time:      time.Now(),
		QueryPath: "data.missing",
		Input:     document.Null(),
		Outcome:   session.OutcomeUndefined,
		Err:       errors.New("undefined_path: no rules or data"),
	})

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	byOutcome := map[string]Record{}
	for _, r := range records {
		byOutcome[r.Outcome] = r
	}
	ok := byOutcome[session.OutcomeSuccess]
	if ok.Input != `{"role":"admin"}` || ok.Result != "true" || ok.PolicyVersion != 7 {
		t.Errorf("unexpected success record: %+v", ok)
	}
	undef := byOutcome[session.OutcomeUndefined]
	if undef.Error == "" {
		t.Error("undefined record lost its error detail")
	}
}

func TestStore_Purge(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	old := Record{CreatedAt: now.Add(-48 * time.Hour), QueryPath: "data", Outcome: session.OutcomeSuccess}
	fresh := Record{CreatedAt: now, QueryPath: "data", Outcome: session.OutcomeSuccess}
	if err := store.Insert(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	deleted, err := store.Purge(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	n, _ := store.Count(ctx)
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSweeper(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := NewSweeper(store, "not a schedule", time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("want error for invalid schedule")
	}
	if _, err := NewSweeper(store, "0 3 * * *", 0, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("want error for non-positive retention")
	}

	sweeper, err := NewSweeper(store, "0 3 * * *", 24*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	old := Record{CreatedAt: time.Now().Add(-48 * time.Hour), QueryPath: "data", Outcome: session.OutcomeSuccess}
	if err := store.Insert(ctx, old); err != nil {
		t.Fatal(err)
	}

	deleted, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

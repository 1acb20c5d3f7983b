package source

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/policy/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSource_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "authz.epl")
	writeFile(t, path, "package authz\n\ndefault allow := false\n")

	bundle, err := NewFileSource(path, discardLogger()).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(bundle.Files) != 1 || bundle.Files[0].Name != path {
		t.Errorf("unexpected bundle files: %+v", bundle.Files)
	}
	if bundle.DataJSON != "" {
		t.Errorf("unexpected data: %q", bundle.DataJSON)
	}
}

func TestFileSource_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.epl"), "package b\n\nx := 2\n")
	writeFile(t, filepath.Join(dir, "a.epl"), "package a\n\nx := 1\n")
	writeFile(t, filepath.Join(dir, "sub", "c.epl"), "package c\n\nx := 3\n")
	writeFile(t, filepath.Join(dir, ".hidden.epl"), "not a policy")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "data.json"), `{"limits": {"max": 10}}`)

	bundle, err := NewFileSource(dir, discardLogger()).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(bundle.Files) != 3 {
		t.Fatalf("got %d files, want 3", len(bundle.Files))
	}
	// Sorted by path: a.epl, b.epl, sub/c.epl.
	if filepath.Base(bundle.Files[0].Name) != "a.epl" ||
		filepath.Base(bundle.Files[1].Name) != "b.epl" ||
		filepath.Base(bundle.Files[2].Name) != "c.epl" {
		t.Errorf("unexpected order: %v", bundle.Files)
	}
	if bundle.DataJSON == "" {
		t.Error("data.json not picked up")
	}
}

func TestFileSource_Errors(t *testing.T) {
	if _, err := NewFileSource("/does/not/exist", discardLogger()).Load(context.Background()); err == nil {
		t.Error("want error for missing path")
	}

	empty := t.TempDir()
	if _, err := NewFileSource(empty, discardLogger()).Load(context.Background()); err == nil {
		t.Error("want error for directory without policies")
	}
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "authz.epl"), `package authz

allow if input.n <= data.limits.max
`)
	writeFile(t, filepath.Join(dir, "data.json"), `{"limits": {"max": 10}}`)

	sess := session.New(session.WithLogger(discardLogger()))
	if err := Apply(context.Background(), NewFileSource(dir, discardLogger()), sess, "data.authz.allow"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got, err := sess.EvaluateText(context.Background(), `{"n": 5}`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Kind() != document.KindBool || !got.AsBool() {
		t.Errorf("got %s, want true", got)
	}
}

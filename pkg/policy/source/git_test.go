package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initOrigin creates a local repository with one committed policy file and
// returns its path together with a commit function for later changes.
func initOrigin(t *testing.T) (string, func(name, content string)) {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}

	commit := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("add: %v", err)
		}
		_, err := wt.Commit("update "+name, &gogit.CommitOptions{
			Author: &object.Signature{
				Name:  "test",
				Email: "test@example.com",
				When:  time.Now(),
			},
		})
		if err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	commit("authz.epl", "package authz\n\ndefault allow := false\n")
	return dir, commit
}

func TestGitSource_CloneLoadPull(t *testing.T) {
	origin, commit := initOrigin(t)

	src, err := NewGitSource(GitConfig{
		URL:       origin,
		Branch:    "master",
		LocalPath: filepath.Join(t.TempDir(), "checkout"),
	}, discardLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx := context.Background()
	if err := src.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}

	bundle, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(bundle.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(bundle.Files))
	}

	// No upstream change: pull is a no-op.
	changed, err := src.Pull(ctx)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if changed {
		t.Error("pull reported changes on an up-to-date checkout")
	}

	before, err := src.HeadSHA()
	if err != nil {
		t.Fatalf("head: %v", err)
	}

	commit("authz.epl", "package authz\n\ndefault allow := true\n")

	changed, err = src.Pull(ctx)
	if err != nil {
		t.Fatalf("pull after commit: %v", err)
	}
	if !changed {
		t.Fatal("pull did not report upstream change")
	}
	after, err := src.HeadSHA()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if before == after {
		t.Error("HEAD did not advance")
	}

	bundle, err = src.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if want := "package authz\n\ndefault allow := true\n"; bundle.Files[0].Source != want {
		t.Errorf("checkout not updated: %q", bundle.Files[0].Source)
	}
}

func TestGitSource_OpenExistingCheckout(t *testing.T) {
	origin, _ := initOrigin(t)
	local := filepath.Join(t.TempDir(), "checkout")

	cfg := GitConfig{URL: origin, Branch: "master", LocalPath: local}
	src, err := NewGitSource(cfg, discardLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := src.Open(context.Background()); err != nil {
		t.Fatalf("clone: %v", err)
	}

	// A second source over the same path opens instead of cloning.
	src2, err := NewGitSource(cfg, discardLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := src2.Open(context.Background()); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := src2.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestGitSource_Validation(t *testing.T) {
	if _, err := NewGitSource(GitConfig{}, discardLogger()); err == nil {
		t.Error("want error for empty URL")
	}

	src, err := NewGitSource(GitConfig{URL: "ignored", LocalPath: t.TempDir()}, discardLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := src.Pull(context.Background()); err == nil {
		t.Error("want error for pull before open")
	}
	if _, err := src.Load(context.Background()); err == nil {
		t.Error("want error for load before open")
	}
}

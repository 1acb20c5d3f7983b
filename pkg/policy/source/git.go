package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitConfig describes a policy repository.
type GitConfig struct {
	// URL is the clone URL; local paths work too.
	URL string
	// Branch to track; "main" when empty.
	Branch string
	// Path is the subdirectory holding .epl files; repository root when
	// empty.
	Path string
	// LocalPath is the checkout location; a directory under os.TempDir()
	// when empty.
	LocalPath string
	// Depth > 0 requests a shallow, single-branch clone.
	Depth int
	// Token enables HTTP basic auth for private repositories.
	Token string
}

// GitSource keeps a local checkout of a policy repository and loads bundles
// from it. Open clones (or reopens) the checkout; Pull advances it.
type GitSource struct {
	config GitConfig
	logger *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource creates a Git-backed policy source.
func NewGitSource(cfg GitConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "europa-policies")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitSource{config: cfg, logger: logger}, nil
}

func (s *GitSource) auth() transport.AuthMethod {
	if s.config.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "token", Password: s.config.Token}
}

// Open clones the repository, or opens an existing checkout at LocalPath.
func (s *GitSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Join(s.config.LocalPath, ".git")); err == nil {
		repo, oerr := gogit.PlainOpen(s.config.LocalPath)
		if oerr != nil {
			return fmt.Errorf("failed to open existing checkout: %w", oerr)
		}
		s.repo = repo
		s.logger.Info("opened existing policy checkout", "path", s.config.LocalPath)
		return nil
	}

	if err := os.MkdirAll(s.config.LocalPath, 0o755); err != nil {
		return fmt.Errorf("failed to create checkout directory: %w", err)
	}

	repo, err := gogit.PlainCloneContext(ctx, s.config.LocalPath, false, &gogit.CloneOptions{
		URL:           s.config.URL,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
		SingleBranch:  s.config.Depth > 0,
		Depth:         s.config.Depth,
		Auth:          s.auth(),
	})
	if err != nil {
		return fmt.Errorf("failed to clone %q: %w", s.config.URL, err)
	}
	s.repo = repo

	s.logger.Info("cloned policy repository",
		"url", s.config.URL,
		"branch", s.config.Branch,
		"path", s.config.LocalPath,
	)
	return nil
}

// Pull fetches and fast-forwards the checkout. It reports whether HEAD
// moved.
func (s *GitSource) Pull(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return false, fmt.Errorf("repository not opened, call Open first")
	}

	head, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to read HEAD: %w", err)
	}
	before := head.Hash()

	worktree, err := s.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName: "origin",
		Auth:       s.auth(),
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return false, fmt.Errorf("failed to pull: %w", err)
	}

	head, err = s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to read HEAD after pull: %w", err)
	}
	changed := head.Hash() != before
	if changed {
		s.logger.Info("policy repository advanced",
			"from", before.String(),
			"to", head.Hash().String(),
		)
	}
	return changed, nil
}

// HeadSHA returns the current checkout commit.
func (s *GitSource) HeadSHA() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return "", fmt.Errorf("repository not opened, call Open first")
	}
	head, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// Load reads the current bundle from the checkout's policy directory. Open
// must have succeeded first.
func (s *GitSource) Load(ctx context.Context) (*Bundle, error) {
	s.mu.Lock()
	repo := s.repo
	s.mu.Unlock()
	if repo == nil {
		return nil, fmt.Errorf("repository not opened, call Open first")
	}

	dir := filepath.Join(s.config.LocalPath, s.config.Path)
	return NewFileSource(dir, s.logger).Load(ctx)
}

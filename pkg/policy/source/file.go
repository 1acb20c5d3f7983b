package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mercator-hq/europa/pkg/policy/session"
)

// PolicyExtension is the file suffix FileSource treats as a policy module.
const PolicyExtension = ".epl"

// DataFileName is the conventional name of the external data document
// inside a policy directory.
const DataFileName = "data.json"

// FileSource loads policies from disk. The path may be a single .epl file
// or a directory; directories are walked recursively, modules sorted by
// path so compilation order is stable, and a top-level data.json becomes
// the external data document.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based policy source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{path: path, logger: logger}
}

// Path returns the watched file or directory.
func (s *FileSource) Path() string {
	return s.path
}

// Load reads the current policy bundle from disk.
func (s *FileSource) Load(ctx context.Context) (*Bundle, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat policy path %q: %w", s.path, err)
	}

	if !info.IsDir() {
		text, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		return &Bundle{Files: []session.File{{Name: s.path, Source: string(text)}}}, nil
	}

	var paths []string
	err = filepath.WalkDir(s.path, func(path string, d os.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() && path != s.path {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(name, PolicyExtension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk policy directory: %w", err)
	}
	sort.Strings(paths)

	bundle := &Bundle{}
	for _, p := range paths {
		text, rerr := os.ReadFile(p)
		if rerr != nil {
			return nil, fmt.Errorf("failed to read policy file %q: %w", p, rerr)
		}
		bundle.Files = append(bundle.Files, session.File{Name: p, Source: string(text)})
	}

	dataPath := filepath.Join(s.path, DataFileName)
	if data, rerr := os.ReadFile(dataPath); rerr == nil {
		bundle.DataJSON = string(data)
	} else if !os.IsNotExist(rerr) {
		return nil, fmt.Errorf("failed to read data document: %w", rerr)
	}

	if len(bundle.Files) == 0 {
		return nil, fmt.Errorf("no %s files found under %q", PolicyExtension, s.path)
	}

	s.logger.Debug("policy bundle read",
		"path", s.path,
		"modules", len(bundle.Files),
		"has_data", bundle.DataJSON != "",
	)
	return bundle, nil
}

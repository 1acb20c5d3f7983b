package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last file event
// before triggering a reload, coalescing editor write bursts.
const DefaultDebounce = 100 * time.Millisecond

// Watcher triggers reloads when files under a path change. It watches with
// fsnotify and debounces event bursts into a single reload.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the given file or directory. A
// non-positive debounce uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, debounce: debounce, logger: logger}
}

// Watch blocks, invoking onChange after each debounced burst of relevant
// file events, until the context is cancelled. Errors from onChange are
// logged and do not stop the watch: a bad policy write must not kill the
// reloader.
func (w *Watcher) Watch(ctx context.Context, onChange func() error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	// Watch the parent too so atomic rename-into-place saves are seen.
	if err := fsw.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}
	if parent := filepath.Dir(w.path); parent != w.path {
		// Best effort; the primary path is already covered.
		_ = fsw.Add(parent)
	}

	w.logger.Info("policy watcher started",
		"path", w.path,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("policy watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			w.logger.Debug("policy file event", "op", event.Op.String(), "name", event.Name)
			if pending {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case werr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("policy watcher error", "error", werr)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := onChange(); err != nil {
				w.logger.Warn("policy reload failed, keeping previous policy", "error", err)
			} else {
				w.logger.Info("policy reloaded", "path", w.path)
			}
		}
	}
}

// relevantEvent filters out chmod noise and hidden/temp files.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	return true
}

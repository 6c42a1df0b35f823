// Package watcher tracks repository modifications made after the search
// index was built. The index is a snapshot; this flags when the working
// tree has drifted from it.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// Directories whose churn says nothing about indexed source content.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".venv":        true,
	"__pycache__":  true,
}

// Watcher watches a repository tree and flips a staleness flag on the
// first write, create, remove or rename event under it.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	stale   atomic.Bool
	stop    chan struct{}
}

// New creates a watcher over the repository rooted at root. Watching
// does not begin until Start is called.
func New(root string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		root:    root,
		watcher: fw,
		logger:  logger,
		stop:    make(chan struct{}),
	}, nil
}

// Start registers every directory under the root and begins processing
// events in a background goroutine. Call Stop to clean up.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return fmt.Errorf("registering watch tree: %w", err)
	}

	go w.processEvents(ctx)
	return nil
}

// Stale reports whether the repository has changed since Start.
func (w *Watcher) Stale() bool {
	return w.stale.Load()
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if inSkippedDir(w.root, event.Name) {
				continue
			}

			if w.stale.CompareAndSwap(false, true) {
				w.logger.Info("repository changed after indexing",
					zap.String("path", event.Name))
			}

			// New directories need their own watch so later writes
			// inside them are seen too.
			if event.Op&fsnotify.Create != 0 {
				_ = w.addTree(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watch error", zap.Error(err))
		}
	}
}

func inSkippedDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for rel != "." && rel != "" {
		if skipDirs[filepath.Base(rel)] {
			return true
		}
		rel = filepath.Dir(rel)
	}
	return false
}

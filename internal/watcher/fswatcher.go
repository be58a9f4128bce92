package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/scandex-dev/scandex/internal/gitignore"
)

// FSWatcher watches a tree with fsnotify, filters ignored paths, and emits
// debounced event batches.
type FSWatcher struct {
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	ignore    *gitignore.Matcher
	errors    chan error
	stopOnce  sync.Once
	stopCh    chan struct{}
	rootPath  string
	opts      Options
}

// New creates a watcher with the given options.
func New(opts Options) (*FSWatcher, error) {
	opts = opts.WithDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ignore := gitignore.New()
	for _, pattern := range opts.IgnorePatterns {
		ignore.AddPattern(pattern)
	}
	// The data directory must never feed back into the watch loop.
	ignore.AddPattern(".scandex/")

	return &FSWatcher{
		fsw:       fsw,
		debouncer: NewDebouncer(opts.DebounceWindow),
		ignore:    ignore,
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}, nil
}

// Start watches path recursively until ctx is canceled or Stop is called.
// It blocks; run it in its own goroutine and consume Events concurrently.
func (w *FSWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve watch root: %w", err)
	}
	w.rootPath = absPath

	if err := w.addRecursive(absPath); err != nil {
		return fmt.Errorf("failed to register watch directories: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

// Events returns the debounced batch channel. Closed after Stop.
func (w *FSWatcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns the non-fatal error channel.
func (w *FSWatcher) Errors() <-chan error {
	return w.errors
}

// Stop stops watching and closes the event channel. Safe to call twice.
func (w *FSWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.fsw.Close()
		w.debouncer.Stop()
	})
	return err
}

func (w *FSWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		relPath, rerr := filepath.Rel(root, path)
		if rerr == nil && relPath != "." && w.ignore.Match(relPath, true) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *FSWatcher) handle(event fsnotify.Event) {
	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if w.ignore.Match(relPath, isDir) {
		return
	}

	base := filepath.Base(event.Name)
	switch base {
	case ".gitignore":
		w.debouncer.Add(FileEvent{
			Path:      relPath,
			Operation: OpGitignoreChange,
			Timestamp: time.Now(),
		})
		return
	case ".scandex.yaml", ".scandex.yml":
		w.debouncer.Add(FileEvent{
			Path:      relPath,
			Operation: OpConfigChange,
			Timestamp: time.Now(),
		})
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		// New subtrees must be watched too.
		if isDir {
			_ = w.fsw.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		// Chmod and other noise.
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      relPath,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

func (w *FSWatcher) emitError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

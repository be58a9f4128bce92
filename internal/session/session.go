// Package session ties the scan pipeline together: it owns the data
// directory, the session store, the index backends, the shared chunk
// catalog, and the decision engine, and drives scans over them. One session
// holds the data directory lock for its lifetime.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scandex-dev/scandex/internal/chunkshare"
	"github.com/scandex-dev/scandex/internal/config"
	scanerrors "github.com/scandex-dev/scandex/internal/errors"
	"github.com/scandex-dev/scandex/internal/index"
	"github.com/scandex-dev/scandex/internal/scan"
	"github.com/scandex-dev/scandex/internal/scanner"
	"github.com/scandex-dev/scandex/internal/stamp"
	"github.com/scandex-dev/scandex/internal/store"
	"github.com/scandex-dev/scandex/internal/telemetry"
	"github.com/scandex-dev/scandex/internal/watcher"
)

// DataDirName is the per-project data directory.
const DataDirName = ".scandex"

// Summary reports what one scan pass did.
type Summary struct {
	Files    int64
	Dirs     int64
	Indexed  int64
	UpToDate int64
	Duration time.Duration
}

// Status reports the session store's current state.
type Status struct {
	TotalFiles   int64
	FullyIndexed int64
	Documents    uint64
	LastScan     string
}

// Session is one locked scan session over a project root.
type Session struct {
	cfg     *config.Config
	root    string
	dataDir string

	lock     *FileLock
	store    *store.Store
	stamps   *stamp.Cache
	fulltext *index.FullText
	chunks   *chunkshare.Store
	registry *index.Registry
	service  *index.Service
	decider  *scan.Decider
	scanner  *scanner.Scanner
	metrics  *telemetry.Recorder

	// guard is the decision snapshot lock: decisions hold the read side,
	// index rebuilds the write side.
	guard sync.RWMutex
}

type rwSnapshot struct {
	mu *sync.RWMutex
}

func (s rwSnapshot) Acquire() func() {
	s.mu.RLock()
	return s.mu.RUnlock
}

// Open locks the project's data directory and wires up the pipeline.
func Open(root string, cfg *config.Config) (*Session, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, scanerrors.New(scanerrors.ErrCodeInvalidPath,
			fmt.Sprintf("cannot resolve project root %s", root), err)
	}

	s := &Session{
		cfg:     cfg,
		root:    absRoot,
		dataDir: filepath.Join(absRoot, DataDirName),
	}

	s.lock = NewFileLock(s.dataDir)
	acquired, err := s.lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, scanerrors.New(scanerrors.ErrCodeSessionLocked,
			"another scan session holds the data directory", nil).
			WithDetail("lock", s.lock.Path()).
			WithSuggestion("wait for the running scan to finish")
	}

	if err := s.open(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) open() error {
	var err error

	s.store, err = store.Open(filepath.Join(s.dataDir, "scandex.db"))
	if err != nil {
		return scanerrors.Wrap(scanerrors.ErrCodeStoreOpen, err)
	}

	s.stamps, err = stamp.NewCache(s.store, s.cfg.Scan.StampCacheSize)
	if err != nil {
		return scanerrors.Wrap(scanerrors.ErrCodeInternal, err)
	}

	s.fulltext, err = index.OpenFullText(filepath.Join(s.dataDir, "fulltext.bleve"))
	if err != nil {
		return scanerrors.Wrap(scanerrors.ErrCodeCorruptIndex, err)
	}

	s.registry = index.NewRegistry(index.DefaultDefinitions()...)
	s.service = index.NewService(index.ServiceConfig{
		Registry:    s.registry,
		Store:       s.store,
		Stamps:      s.stamps,
		FullText:    s.fulltext,
		Root:        s.root,
		MaxFileSize: s.cfg.Scan.MaxFileSize,
		Guard:       &s.guard,
	})
	s.service.Start(context.Background())

	engineCfg := scan.Config{
		Registry: s.registry,
		Indexes:  s.service,
		Stamps:   s.stamps,
		Snapshot: rwSnapshot{mu: &s.guard},
	}

	if s.cfg.Chunks.Enabled {
		path := s.cfg.Chunks.Path
		if path == "" {
			path = filepath.Join(s.dataDir, "chunks.db")
		}
		s.chunks, err = chunkshare.Open(path)
		if err != nil {
			return scanerrors.Wrap(scanerrors.ErrCodeChunkCatalog, err)
		}
		engineCfg.Chunks = s.chunks
	}

	s.decider = scan.New(engineCfg)

	s.scanner, err = scanner.New()
	if err != nil {
		return scanerrors.Wrap(scanerrors.ErrCodeInternal, err)
	}

	s.metrics = telemetry.NewRecorder(s.store)
	return nil
}

// Close flushes buffered stamps, drains rebuilds, and releases the lock.
func (s *Session) Close() error {
	if s.service != nil {
		s.service.Stop()
	}
	if s.stamps != nil {
		s.stamps.FlushAll()
	}
	if s.fulltext != nil {
		_ = s.fulltext.Close()
	}
	if s.chunks != nil {
		_ = s.chunks.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	return s.lock.Unlock()
}

// ChunkCatalog exposes the shared chunk store, or nil when disabled.
func (s *Session) ChunkCatalog() *chunkshare.Store {
	return s.chunks
}

// Scan walks the project tree, decides every discovered entry, and indexes
// the content of files that need it.
func (s *Session) Scan(ctx context.Context) (Summary, error) {
	start := time.Now()

	var files, dirs, indexed, upToDate atomic.Int64

	workers := s.cfg.Scan.Workers
	if workers <= 0 {
		workers = 1
	}

	tracked := make(chan *store.TrackedFile, workers*4)

	g, gctx := errgroup.WithContext(ctx)

	// The walker runs against the group context so a worker failure
	// unblocks it.
	results, err := s.scanner.Scan(gctx, scanner.Options{
		RootDir:          s.root,
		ExcludePatterns:  append([]string{DataDirName + "/**"}, s.cfg.Paths.Exclude...),
		RespectGitignore: s.cfg.Scan.RespectGitignore,
		FollowSymlinks:   s.cfg.Scan.FollowSymlinks,
	})
	if err != nil {
		return Summary{}, scanerrors.Wrap(scanerrors.ErrCodeScanRootWalk, err)
	}

	// The store allows a single writer, so all upserts happen here.
	g.Go(func() error {
		defer close(tracked)
		for res := range results {
			if res.Error != nil {
				return scanerrors.Wrap(scanerrors.ErrCodeScanRootWalk, res.Error)
			}

			rec := store.FileRecord{
				Path:     res.File.Path,
				Size:     res.File.Size,
				ModTime:  res.File.ModTime,
				FileType: res.File.FileType,
				IsDir:    res.File.IsDir,
			}
			if _, err := s.store.UpsertFile(gctx, &rec); err != nil {
				return err
			}
			if rec.IsDir {
				dirs.Add(1)
			} else {
				files.Add(1)
			}

			select {
			case tracked <- store.NewTrackedFile(s.store, rec):
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for tf := range tracked {
				needs, err := s.decider.Decide(gctx, tf)
				if err != nil {
					return err
				}
				if !needs {
					upToDate.Add(1)
					continue
				}
				if err := s.service.IndexContent(gctx, tf); err != nil {
					// The file may have changed or vanished mid-scan; it
					// stays unmarked and the next scan retries it.
					slog.Warn("failed to index file content",
						slog.String("path", tf.Path()),
						slog.String("error", err.Error()))
					continue
				}
				indexed.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	s.stamps.FlushAll()
	if err := s.store.SetState(ctx, store.StateKeyLastScan, time.Now().Format(time.RFC3339)); err != nil {
		slog.Warn("failed to record scan time", slog.String("error", err.Error()))
	}

	summary := Summary{
		Files:    files.Load(),
		Dirs:     dirs.Load(),
		Indexed:  indexed.Load(),
		UpToDate: upToDate.Load(),
		Duration: time.Since(start),
	}
	s.metrics.Record(ctx, store.ScanRecord{
		StartedAt: start,
		Duration:  summary.Duration,
		Files:     summary.Files,
		Dirs:      summary.Dirs,
		Indexed:   summary.Indexed,
		UpToDate:  summary.UpToDate,
	})
	return summary, nil
}

// Watch runs an initial scan and then rescans whenever the tree changes,
// until ctx is canceled.
func (s *Session) Watch(ctx context.Context) error {
	if _, err := s.Scan(ctx); err != nil {
		return err
	}

	w, err := watcher.New(watcher.Options{
		DebounceWindow: s.cfg.WatchDebounce(),
		IgnorePatterns: s.cfg.Paths.Exclude,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	go func() {
		if err := w.Start(ctx, s.root); err != nil && err != context.Canceled {
			slog.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.Errors():
			if ok {
				slog.Warn("watch error", slog.String("error", err.Error()))
			}
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			s.handleEvents(ctx, batch)
		}
	}
}

func (s *Session) handleEvents(ctx context.Context, batch []watcher.FileEvent) {
	rescan := false
	for _, ev := range batch {
		switch ev.Operation {
		case watcher.OpGitignoreChange:
			s.scanner.InvalidateGitignoreCache()
			rescan = true
		case watcher.OpConfigChange:
			slog.Info("project config changed, restart to apply", slog.String("path", ev.Path))
		case watcher.OpDelete, watcher.OpRename:
			s.removeTracked(ctx, ev.Path)
		default:
			rescan = true
		}
	}

	if rescan {
		summary, err := s.Scan(ctx)
		if err != nil {
			slog.Error("rescan failed", slog.String("error", err.Error()))
			return
		}
		slog.Info("rescan complete",
			slog.Int64("files", summary.Files),
			slog.Int64("indexed", summary.Indexed))
	}
}

// removeTracked drops a vanished file from the store and every index.
func (s *Session) removeTracked(ctx context.Context, path string) {
	rec, err := s.store.FileByPath(ctx, path)
	if err != nil || rec == nil {
		return
	}

	s.stamps.Forget(rec.ID)
	if err := s.fulltext.Remove(rec.ID); err != nil {
		slog.Warn("failed to remove document",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
	if s.chunks != nil {
		_ = s.chunks.ClearEntry(ctx, rec.ID)
	}
	if err := s.store.DeleteFile(ctx, rec.ID); err != nil {
		slog.Warn("failed to delete file record",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// Search runs a full-text query over indexed content.
func (s *Session) Search(ctx context.Context, query string, limit int) ([]index.Hit, error) {
	if query == "" {
		return nil, scanerrors.New(scanerrors.ErrCodeInvalidInput, "search query is empty", nil)
	}
	if limit <= 0 {
		limit = 10
	}
	return s.fulltext.Search(ctx, query, limit)
}

// Status reads the store counters.
func (s *Session) Status(ctx context.Context) (Status, error) {
	total, fullyIndexed, err := s.store.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	docs, err := s.fulltext.DocCount()
	if err != nil {
		return Status{}, err
	}
	lastScan, err := s.store.GetState(ctx, store.StateKeyLastScan)
	if err != nil {
		return Status{}, err
	}
	return Status{
		TotalFiles:   total,
		FullyIndexed: fullyIndexed,
		Documents:    docs,
		LastScan:     lastScan,
	}, nil
}

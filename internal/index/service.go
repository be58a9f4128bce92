package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/scandex-dev/scandex/internal/scan"
	"github.com/scandex-dev/scandex/internal/stamp"
	"github.com/scandex-dev/scandex/internal/store"
)

// DefaultMaxFileSize is the content-indexing size threshold (4 MiB).
// Oversized files still receive content-less index updates.
const DefaultMaxFileSize = 4 * 1024 * 1024

// ServiceConfig wires the index service to its storage collaborators.
type ServiceConfig struct {
	Registry *Registry
	Store    *store.Store
	Stamps   *stamp.Cache
	FullText *FullText

	// Root is the scanned tree root; tracked file paths are relative to it.
	Root string

	// MaxFileSize is the content-indexing threshold in bytes.
	// Zero or negative uses DefaultMaxFileSize.
	MaxFileSize int64

	// Guard, when set, serializes rebuilds against in-flight decisions.
	// Decisions hold the read side; rebuilds take the write side.
	Guard Guard
}

// Guard is the write side of the decision snapshot lock.
type Guard interface {
	Lock()
	Unlock()
}

// Service answers the decision engine's per-index state queries against the
// stamp table and the concrete index backends, applies content-less updates,
// and feeds the rebuild queue when index storage faults.
type Service struct {
	reg         *Registry
	store       *store.Store
	stamps      *stamp.Cache
	fulltext    *FullText
	rebuilder   *Rebuilder
	guard       Guard
	root        string
	maxFileSize int64
}

var _ scan.IndexAccess = (*Service)(nil)

// NewService creates the index service and its rebuild queue. Call Start to
// begin processing rebuild requests and Stop to drain them.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		reg:         cfg.Registry,
		store:       cfg.Store,
		stamps:      cfg.Stamps,
		fulltext:    cfg.FullText,
		guard:       cfg.Guard,
		root:        cfg.Root,
		maxFileSize: cfg.MaxFileSize,
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxFileSize
	}
	s.rebuilder = NewRebuilder(s.rebuildIndex)
	return s
}

// Start launches the rebuild worker.
func (s *Service) Start(ctx context.Context) {
	s.rebuilder.Start(ctx)
}

// Stop drains outstanding rebuild requests and stops the worker.
func (s *Service) Stop() {
	s.rebuilder.Stop()
}

// State computes the per-index verdict for a file. The recorded stamp must
// match the file's current mtime; for the full-text index the backing
// document must also exist. Unreadable index storage is reported as a
// storage fault so the engine can recover locally.
func (s *Service) State(ctx context.Context, f scan.FileRef, id scan.IndexID) (scan.IndexState, error) {
	def, ok := s.reg.Definition(id)
	if !ok || !def.AppliesTo(f) {
		return scan.StateNotApplicable, nil
	}

	recorded, ok, err := s.store.Stamp(ctx, f.ID(), string(id))
	if err != nil {
		return scan.StateShouldIndex, fmt.Errorf("failed to read stamp for %s: %w", f.Path(), err)
	}
	if !ok || recorded != f.ModTime().UnixNano() {
		return scan.StateShouldIndex, nil
	}

	if id == IndexFullText {
		has, err := s.fulltext.Has(f.ID())
		if err != nil {
			return scan.StateShouldIndex, scan.NewStorageFault(id, err)
		}
		if !has {
			return scan.StateShouldIndex, nil
		}
	}
	return scan.StateUpToDate, nil
}

// AggregateUpToDate reports whether the file's aggregate indexed-state is
// current, using the file-type index stamp as the aggregate marker.
func (s *Service) AggregateUpToDate(ctx context.Context, f scan.FileRef) (bool, error) {
	state, err := s.State(ctx, f, IndexFileType)
	if err != nil {
		return false, err
	}
	return state != scan.StateShouldIndex, nil
}

// ApplyContentLess records a content-less index update for the file. The
// stamp is buffered; the engine's per-file flush persists it.
func (s *Service) ApplyContentLess(_ context.Context, f scan.FileRef, id scan.IndexID) error {
	s.stamps.Set(f.ID(), string(id), f.ModTime().UnixNano())
	return nil
}

// RequestRebuild schedules an asynchronous rebuild of one index.
func (s *Service) RequestRebuild(id scan.IndexID) {
	s.rebuilder.Request(id)
}

// DropNonTrivialStates discards the file's recorded content-index stamps so
// every content index treats it as unindexed. Failures are logged; the worst
// case is a redundant reindex on the next scan.
func (s *Service) DropNonTrivialStates(ctx context.Context, fileID int64) {
	s.stamps.Forget(fileID)
	if err := s.store.DropStamps(ctx, fileID, s.reg.ContentIndexIDs()); err != nil {
		slog.Warn("failed to drop recorded index states",
			slog.Int64("file_id", fileID),
			slog.String("error", err.Error()))
	}
}

// TooLarge reports whether the file exceeds the content-indexing threshold.
// Directories are never too large.
func (s *Service) TooLarge(f scan.FileRef) bool {
	return !f.IsDir() && f.Size() > s.maxFileSize
}

// IndexContent loads the file's content, feeds it to every content-needing
// index that applies, and persists the resulting stamps. Called by the scan
// loop for each file the engine decided needs indexing.
func (s *Service) IndexContent(ctx context.Context, f scan.FileRef) error {
	if f.IsDir() || s.TooLarge(f) {
		return nil
	}

	content, err := os.ReadFile(filepath.Join(s.root, f.Path()))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Path(), err)
	}

	stamps := make(map[string]int64, 2)
	for _, def := range s.reg.defs {
		if !def.NeedsContent || !def.AppliesTo(f) {
			continue
		}
		if def.ID == IndexFullText {
			if err := s.fulltext.Index(f.ID(), f.Path(), content); err != nil {
				return err
			}
		}
		stamps[string(def.ID)] = f.ModTime().UnixNano()
	}

	if err := s.store.PutStamps(ctx, f.ID(), stamps); err != nil {
		return err
	}
	f.SetFullyIndexed(true)
	return nil
}

// rebuildIndex is the rebuild queue's action: wipe the index backend and the
// stamps recorded against it.
func (s *Service) rebuildIndex(ctx context.Context, id scan.IndexID) error {
	if s.guard != nil {
		s.guard.Lock()
		defer s.guard.Unlock()
	}
	slog.Info("rebuilding index", slog.String("index", string(id)))

	if id == IndexFullText {
		if err := s.fulltext.Reset(); err != nil {
			return err
		}
	}
	return s.store.ClearIndexStamps(ctx, string(id))
}

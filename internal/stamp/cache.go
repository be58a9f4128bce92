// Package stamp buffers per-file indexing stamps in memory and flushes them
// to the store once per file decision. Buffering keeps stamp writes out of
// the per-index hot path; the decision engine triggers exactly one flush
// per call.
package stamp

import (
	"context"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scandex-dev/scandex/internal/store"
)

// DefaultCacheSize is the default number of files with buffered stamps.
const DefaultCacheSize = 4096

type flushEntry struct {
	fileID int64
	stamps map[string]int64
}

// Cache is a write-back cache of per-file stamps. Entries leaving the LRU
// (flushed, purged, or evicted under pressure) are written to the store, so
// no stamp is lost short of a store failure, which is logged and costs a
// reindex of that file on the next scan.
type Cache struct {
	store *store.Store

	mu    sync.Mutex
	dirty *lru.Cache[int64, map[string]int64]
	// pending collects entries surfaced by the LRU eviction callback while
	// mu is held; they are written after the lock is released so no store
	// I/O happens inside the critical section.
	pending []flushEntry
}

// NewCache creates a stamp cache flushing into s. size <= 0 uses the default.
func NewCache(s *store.Store, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}

	c := &Cache{store: s}
	dirty, err := lru.NewWithEvict[int64, map[string]int64](size, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.dirty = dirty
	return c, nil
}

// Set buffers one stamp for (file, index).
func (c *Cache) Set(fileID int64, indexID string, stampNS int64) {
	c.mu.Lock()
	stamps, ok := c.dirty.Get(fileID)
	if !ok {
		stamps = make(map[string]int64, 4)
		c.dirty.Add(fileID, stamps)
	}
	stamps[indexID] = stampNS
	out := c.takePending()
	c.mu.Unlock()

	c.writeAll(out)
}

// Forget discards buffered stamps for a file without flushing. Used when
// the file's recorded states are being dropped anyway.
func (c *Cache) Forget(fileID int64) {
	c.mu.Lock()
	c.dirty.Remove(fileID)
	c.pending = nil
	c.mu.Unlock()
}

// Flush writes the file's buffered stamps to the store. Implements the
// decision engine's stamp flusher; a store failure is logged, not
// propagated.
func (c *Cache) Flush(fileID int64) {
	c.mu.Lock()
	c.dirty.Remove(fileID)
	out := c.takePending()
	c.mu.Unlock()

	c.writeAll(out)
}

// FlushAll drains every buffered entry. Called at the end of a scan session.
func (c *Cache) FlushAll() {
	c.mu.Lock()
	c.dirty.Purge()
	out := c.takePending()
	c.mu.Unlock()

	c.writeAll(out)
}

// onEvict runs under mu for every entry leaving the LRU.
func (c *Cache) onEvict(fileID int64, stamps map[string]int64) {
	if len(stamps) == 0 {
		return
	}
	c.pending = append(c.pending, flushEntry{fileID: fileID, stamps: stamps})
}

func (c *Cache) takePending() []flushEntry {
	out := c.pending
	c.pending = nil
	return out
}

func (c *Cache) writeAll(entries []flushEntry) {
	for _, e := range entries {
		if err := c.store.PutStamps(context.Background(), e.fileID, e.stamps); err != nil {
			slog.Warn("failed to flush indexing stamps",
				slog.Int64("file_id", e.fileID),
				slog.Int("count", len(e.stamps)),
				slog.String("error", err.Error()))
		}
	}
}

package scan

import "sync"

// bookkeeping tracks which shared chunks this engine instance has attached
// or invalidated during its scan session. Both sets are append-only for the
// lifetime of the engine; entries are never removed.
//
// Each set has its own mutex and no operation holds both at once, so the
// critical sections stay small and cannot deadlock. No I/O happens while
// either lock is held.
type bookkeeping struct {
	attachedMu sync.Mutex
	attached   map[ChunkID]struct{}

	invalidatedMu sync.Mutex
	invalidated   map[ChunkID]struct{}
}

func newBookkeeping() *bookkeeping {
	return &bookkeeping{
		attached:    make(map[ChunkID]struct{}),
		invalidated: make(map[ChunkID]struct{}),
	}
}

// tryMarkAttached atomically records the chunk as attached and reports
// whether it was newly inserted. The first caller for a chunk id wins and
// is responsible for the actual attach attempt.
func (b *bookkeeping) tryMarkAttached(id ChunkID) bool {
	b.attachedMu.Lock()
	defer b.attachedMu.Unlock()

	if _, ok := b.attached[id]; ok {
		return false
	}
	b.attached[id] = struct{}{}
	return true
}

// markInvalidated records the chunk as unusable for the rest of the session.
// Invalidation may be requested for a chunk that was never attached.
func (b *bookkeeping) markInvalidated(id ChunkID) {
	b.invalidatedMu.Lock()
	defer b.invalidatedMu.Unlock()
	b.invalidated[id] = struct{}{}
}

// isInvalidated reports whether the chunk was invalidated this session.
func (b *bookkeeping) isInvalidated(id ChunkID) bool {
	b.invalidatedMu.Lock()
	defer b.invalidatedMu.Unlock()
	_, ok := b.invalidated[id]
	return ok
}

package scan

import (
	"context"
)

// Config wires the decision engine to its collaborators.
type Config struct {
	// Registry supplies index definitions and candidate selection.
	Registry Registry

	// Indexes performs per-index state checks, content-less updates,
	// rebuild requests and stamp drops.
	Indexes IndexAccess

	// Chunks is the shared precomputed chunk store. Nil disables the
	// shared-chunk path entirely.
	Chunks ChunkStore

	// Stamps flushes a file's buffered indexing stamps after each decision.
	Stamps StampFlusher

	// Snapshot guards each decision with a consistent read view. Nil means
	// no snapshotting (tests, single-threaded callers).
	Snapshot Snapshot
}

// Decider is the per-file indexing decision engine. One instance serves one
// scan session and is shared by all workers driving that scan; Decide is
// safe for concurrent use. Chunk bookkeeping accumulated by the instance
// survives for the whole session.
type Decider struct {
	cfg  Config
	book *bookkeeping
}

// New creates a decision engine for one scan session.
func New(cfg Config) *Decider {
	return &Decider{
		cfg:  cfg,
		book: newBookkeeping(),
	}
}

// Decide reports whether the file must be (re)indexed and performs the
// decision's side effects exactly once: content-less index updates, shared
// chunk reattachment or invalidation, a single stamp flush, and the
// fully-indexed marker when nothing required work.
//
// Invalid files, files already marked fully indexed, and files without a
// stable identity return false with no side effects.
func (d *Decider) Decide(ctx context.Context, f FileRef) (bool, error) {
	if !f.Valid() || f.FullyIndexed() || f.ID() < 0 {
		return false, nil
	}

	release := d.acquireSnapshot()
	defer release()

	needsIndexing := false

	if !f.IsDir() && !d.cfg.Indexes.TooLarge(f) {
		upToDate, err := d.cfg.Indexes.AggregateUpToDate(ctx, f)
		if err != nil {
			return false, err
		}
		if !upToDate {
			// Fast path: the aggregate state is stale or unknown, so the
			// per-index scan is pointless. Drop recorded states and index
			// the file for everything.
			d.cfg.Indexes.DropNonTrivialStates(ctx, f.ID())
			needsIndexing = true
		} else {
			needsIndexing, err = d.evaluateCandidates(ctx, f)
			if err != nil {
				return false, err
			}
		}
	}

	// Content-less indexes never need file content, so they are evaluated
	// and applied even for directories and oversized files.
	if err := d.applyContentLess(ctx, f); err != nil {
		return false, err
	}

	d.cfg.Stamps.Flush(f.ID())

	if !needsIndexing {
		f.SetFullyIndexed(true)
	}
	return needsIndexing, nil
}

// applyContentLess evaluates every content-less index applicable to the
// file's kind against its metadata and applies SHOULD_INDEX updates
// immediately. These updates do not mark the file as needing indexing.
func (d *Decider) applyContentLess(ctx context.Context, f FileRef) error {
	for _, id := range d.cfg.Registry.ContentLess(f.IsDir()) {
		state, err := d.cfg.Indexes.State(ctx, f, id)
		if err != nil {
			return err
		}
		if state != StateShouldIndex {
			continue
		}
		if err := d.cfg.Indexes.ApplyContentLess(ctx, f, id); err != nil {
			return err
		}
	}
	return nil
}

func (d *Decider) acquireSnapshot() func() {
	if d.cfg.Snapshot == nil {
		return func() {}
	}
	return d.cfg.Snapshot.Acquire()
}

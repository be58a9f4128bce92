package scan

import (
	"context"
	"log/slog"
)

// reattachChunk handles the shared-chunk path for a file whose content-hash
// index verdict is UP_TO_DATE. It looks up the chunk associated with the
// file's content hash and attaches it to the project if this engine
// instance has not seen it before. Attach is attempted exactly once per
// chunk per session; a failed attach invalidates the chunk so every
// subsequent file referencing it is forced to reindex without retrying.
//
// Returns true when the chunk turned out to be invalidated: the file's
// content-hash entry has been cleared, its non-trivial indexed states
// dropped, and the caller must treat the file as needing a full reindex.
func (d *Decider) reattachChunk(ctx context.Context, f FileRef) (bool, error) {
	chunk, err := d.cfg.Chunks.AssociatedChunk(ctx, f)
	if err != nil {
		return false, err
	}
	if chunk == ChunkNone {
		return false, nil
	}

	var invalidated bool
	if d.book.tryMarkAttached(chunk) {
		if err := d.cfg.Chunks.Attach(ctx, chunk); err != nil {
			slog.Warn("shared chunk attach failed, invalidating for session",
				slog.Int64("chunk_id", int64(chunk)),
				slog.String("path", f.Path()),
				slog.String("error", err.Error()))
			d.book.markInvalidated(chunk)
			invalidated = true
		}
	} else {
		// Another file already attempted the attach; observe its outcome.
		invalidated = d.book.isInvalidated(chunk)
	}

	if !invalidated {
		return false, nil
	}

	if err := d.cfg.Chunks.ClearEntry(ctx, f.ID()); err != nil {
		return false, err
	}
	d.cfg.Indexes.DropNonTrivialStates(ctx, f.ID())

	slog.Debug("invalidated chunk forces reindex",
		slog.Int64("chunk_id", int64(chunk)),
		slog.String("path", f.Path()))
	return true, nil
}

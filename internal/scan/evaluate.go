package scan

import (
	"context"
	"errors"
	"log/slog"
)

// evaluateCandidates walks the file's candidate indexes in registry order
// and reports whether any of them requires the file to be indexed.
//
// The first SHOULD_INDEX verdict wins and short-circuits the rest: once one
// index wants the file, the file is indexed for all of them anyway. An
// UP_TO_DATE verdict routes through the shared chunk coordinator when a
// chunk store is configured. Content-less indexes are skipped here; they
// are applied unconditionally by the decision engine.
//
// A storage fault on one index is logged, triggers an asynchronous rebuild
// of that index, and never prevents the remaining indexes from being
// evaluated. Any other failure aborts the file's decision.
func (d *Decider) evaluateCandidates(ctx context.Context, f FileRef) (bool, error) {
	for _, id := range d.cfg.Registry.Candidates(f) {
		if !d.cfg.Registry.NeedsContent(id) {
			continue
		}

		state, err := d.cfg.Indexes.State(ctx, f, id)
		if err != nil {
			var fault *StorageFault
			if errors.As(err, &fault) {
				slog.Warn("index storage fault, requesting rebuild",
					slog.String("index", string(fault.Index)),
					slog.String("path", f.Path()),
					slog.String("error", err.Error()))
				d.cfg.Indexes.RequestRebuild(fault.Index)
				continue
			}
			return false, err
		}

		switch state {
		case StateShouldIndex:
			slog.Debug("file needs indexing",
				slog.String("index", string(id)),
				slog.String("path", f.Path()))
			return true, nil

		case StateUpToDate:
			if d.cfg.Chunks == nil {
				continue
			}
			forced, err := d.reattachChunk(ctx, f)
			if err != nil {
				return false, err
			}
			if forced {
				return true, nil
			}
		}
	}
	return false, nil
}

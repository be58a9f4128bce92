package index

import (
	"context"
	"log/slog"
	"sync"

	"github.com/scandex-dev/scandex/internal/scan"
)

// Rebuilder runs index rebuilds on a single background worker. Requests are
// deduplicated: a second request for an index that is already queued or
// being rebuilt is dropped, since the rebuild wipes the whole index anyway.
type Rebuilder struct {
	action func(ctx context.Context, id scan.IndexID) error

	mu     sync.Mutex
	queued map[scan.IndexID]bool
	ch     chan scan.IndexID

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// rebuildQueueDepth bounds outstanding requests. Deduplication keeps the
// queue at no more than one entry per registered index, so the bound is
// never hit in practice.
const rebuildQueueDepth = 16

// NewRebuilder creates a rebuilder executing action for each request.
func NewRebuilder(action func(ctx context.Context, id scan.IndexID) error) *Rebuilder {
	return &Rebuilder{
		action: action,
		queued: make(map[scan.IndexID]bool),
		ch:     make(chan scan.IndexID, rebuildQueueDepth),
	}
}

// Start launches the worker. Subsequent calls are no-ops.
func (r *Rebuilder) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		r.wg.Add(1)
		go r.run(ctx)
	})
}

// Request schedules a rebuild. Safe to call from any goroutine; duplicate
// requests for an in-flight index are dropped.
func (r *Rebuilder) Request(id scan.IndexID) {
	r.mu.Lock()
	if r.queued[id] {
		r.mu.Unlock()
		return
	}
	r.queued[id] = true
	r.mu.Unlock()

	select {
	case r.ch <- id:
	default:
		// Queue full; undo the reservation so a later request can retry.
		r.mu.Lock()
		delete(r.queued, id)
		r.mu.Unlock()
		slog.Warn("rebuild queue full, dropping request", slog.String("index", string(id)))
	}
}

// Stop drains queued requests and waits for the worker to finish.
// Start must have been called.
func (r *Rebuilder) Stop() {
	r.stopOnce.Do(func() {
		close(r.ch)
	})
	r.wg.Wait()
}

func (r *Rebuilder) run(ctx context.Context) {
	defer r.wg.Done()

	for id := range r.ch {
		if err := r.action(ctx, id); err != nil {
			slog.Error("index rebuild failed",
				slog.String("index", string(id)),
				slog.String("error", err.Error()))
		}
		r.mu.Lock()
		delete(r.queued, id)
		r.mu.Unlock()
	}
}

// Package scan implements the per-file indexing decision engine.
// Given one file reference and a registry of index definitions, it decides
// whether the file must be (re)indexed and by which indexes, performing the
// side effects of that decision: content-less index updates, shared chunk
// reattachment or invalidation, per-file stamp flushes, and marking files
// that need no further work.
package scan

import (
	"context"
	"time"
)

// IndexID identifies a registered index definition.
type IndexID string

// ChunkID identifies a precomputed shared index chunk, keyed by content hash.
type ChunkID int64

// ChunkNone is the zero ChunkID, meaning no chunk is associated with a file.
const ChunkNone ChunkID = 0

// IndexState is the per-(file, index) verdict. It is recomputed on every
// decision and never persisted by this package.
type IndexState int

const (
	// StateUpToDate means the index already reflects the file's current content.
	StateUpToDate IndexState = iota
	// StateShouldIndex means the index is missing or stale for this file.
	StateShouldIndex
	// StateNotApplicable means the index does not apply to this file.
	StateNotApplicable
)

// String returns a human-readable representation of the state.
func (s IndexState) String() string {
	switch s {
	case StateUpToDate:
		return "UP_TO_DATE"
	case StateShouldIndex:
		return "SHOULD_INDEX"
	case StateNotApplicable:
		return "NOT_APPLICABLE"
	default:
		return "UNKNOWN"
	}
}

// FileRef is an opaque file identity supplied by the file table.
// The engine never mutates file content; the only write-back is the
// fully-indexed marker used to skip files on subsequent scans.
type FileRef interface {
	// ID is a stable non-negative integer identity. Files without a stable
	// identity report a negative value and are rejected by the engine.
	ID() int64
	Path() string
	Valid() bool
	IsDir() bool
	Size() int64
	ModTime() time.Time
	// FileType is the detected language or file kind ("go", "markdown", ...).
	FileType() string
	FullyIndexed() bool
	SetFullyIndexed(v bool)
}

// Registry exposes the immutable index definitions relevant to a file.
type Registry interface {
	// Candidates returns the ordered index ids that may apply to the file.
	// Order follows registration order; it is not significant for
	// correctness but determines which SHOULD_INDEX is detected first.
	Candidates(f FileRef) []IndexID

	// ContentLess returns the index ids that never need file content,
	// filtered by whether the file is a directory.
	ContentLess(isDir bool) []IndexID

	// NeedsContent reports whether the index requires file content to build.
	NeedsContent(id IndexID) bool
}

// IndexAccess is the storage-facing side of the index registry: per-index
// state checks, content-less updates, rebuild requests and stamp drops.
type IndexAccess interface {
	// State computes the per-index verdict for the file. A failure caused by
	// underlying I/O or corrupted index storage is reported as a
	// *StorageFault; any other error aborts the file's decision.
	State(ctx context.Context, f FileRef, id IndexID) (IndexState, error)

	// AggregateUpToDate reports whether the file's cached overall
	// indexed-state is current. A stale aggregate short-circuits the
	// per-index scan.
	AggregateUpToDate(ctx context.Context, f FileRef) (bool, error)

	// ApplyContentLess synchronously applies a content-less index update.
	ApplyContentLess(ctx context.Context, f FileRef, id IndexID) error

	// RequestRebuild schedules an asynchronous rebuild of one index.
	RequestRebuild(id IndexID)

	// DropNonTrivialStates discards all non-trivial recorded indexed states
	// for the file, forcing content indexes to treat it as unindexed.
	DropNonTrivialStates(ctx context.Context, fileID int64)

	// TooLarge reports whether the file exceeds the content-indexing size
	// threshold. Oversized files are excluded from every content-needing
	// index but never from content-less indexes.
	TooLarge(f FileRef) bool
}

// ChunkStore is the shared precomputed chunk collaborator.
type ChunkStore interface {
	// AssociatedChunk looks up the chunk id recorded for the file's content
	// hash. Returns ChunkNone when the file has no associated chunk.
	// May be expensive; called only on an UP_TO_DATE content-hash verdict.
	AssociatedChunk(ctx context.Context, f FileRef) (ChunkID, error)

	// Attach associates a precomputed chunk with the current project.
	// A failed attach invalidates the chunk for the rest of the session.
	Attach(ctx context.Context, id ChunkID) error

	// ClearEntry removes the file's stored content-hash entry.
	ClearEntry(ctx context.Context, fileID int64) error
}

// StampFlusher flushes a file's buffered indexing stamps to storage.
type StampFlusher interface {
	Flush(fileID int64)
}

// Snapshot provides a consistent read view for the duration of one decision.
// Acquire returns a release function that must run on every exit path.
type Snapshot interface {
	Acquire() (release func())
}

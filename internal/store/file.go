package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/scandex-dev/scandex/internal/scan"
)

// TrackedFile adapts a FileRecord to the decision engine's file reference.
// The fully-indexed marker writes through to the store.
type TrackedFile struct {
	rec   FileRecord
	valid bool
	store *Store
}

var _ scan.FileRef = (*TrackedFile)(nil)

// NewTrackedFile wraps a record that exists in the store.
func NewTrackedFile(s *Store, rec FileRecord) *TrackedFile {
	return &TrackedFile{rec: rec, valid: true, store: s}
}

func (f *TrackedFile) ID() int64          { return f.rec.ID }
func (f *TrackedFile) Path() string       { return f.rec.Path }
func (f *TrackedFile) Valid() bool        { return f.valid }
func (f *TrackedFile) IsDir() bool        { return f.rec.IsDir }
func (f *TrackedFile) Size() int64        { return f.rec.Size }
func (f *TrackedFile) ModTime() time.Time { return f.rec.ModTime }
func (f *TrackedFile) FileType() string   { return f.rec.FileType }
func (f *TrackedFile) FullyIndexed() bool { return f.rec.FullyIndexed }

// Invalidate marks the reference invalid (file vanished between the walk
// and the decision). The engine rejects invalid files without side effects.
func (f *TrackedFile) Invalidate() {
	f.valid = false
}

// SetFullyIndexed flips the marker in memory and writes it through.
// A write failure only costs a redundant revisit on the next scan, so it is
// logged rather than propagated.
func (f *TrackedFile) SetFullyIndexed(v bool) {
	f.rec.FullyIndexed = v
	if err := f.store.SetFullyIndexed(context.Background(), f.rec.ID, v); err != nil {
		slog.Warn("failed to persist fully-indexed marker",
			slog.String("path", f.rec.Path),
			slog.String("error", err.Error()))
	}
}

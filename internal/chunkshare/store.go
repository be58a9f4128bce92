// Package chunkshare persists the shared precomputed index chunk catalog:
// which chunk belongs to which content hash, which file currently points at
// which chunk, and which chunks are attached to the local project. Chunk
// payload production and distribution happen elsewhere; this store only
// answers the decision engine's lookup, attach and clear calls.
package chunkshare

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/scandex-dev/scandex/internal/scan"
)

var (
	bucketChunks   = []byte("chunks")   // chunk id -> content hash
	bucketEntries  = []byte("entries")  // file id -> (chunk id, content hash)
	bucketAttached = []byte("attached") // chunk id -> attach timestamp
)

// Store is a bbolt-backed shared chunk catalog.
type Store struct {
	db *bolt.DB
}

var _ scan.ChunkStore = (*Store)(nil)

// Open opens (or creates) the chunk catalog at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create chunk store directory: %w", err)
	}

	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketChunks, bucketEntries, bucketAttached} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize chunk store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutChunk registers a precomputed chunk for a content hash. Used by the
// provisioning path that installs downloaded chunk sets.
func (s *Store) PutChunk(id scan.ChunkID, contentHash string) error {
	if id == scan.ChunkNone {
		return fmt.Errorf("chunk id must be non-zero")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChunks).Put(itob(int64(id)), []byte(contentHash))
	})
}

// SetEntry records that a file's content hash resolves to a chunk.
func (s *Store) SetEntry(fileID int64, contentHash string, id scan.ChunkID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		value := make([]byte, 8+len(contentHash))
		binary.BigEndian.PutUint64(value, uint64(id))
		copy(value[8:], contentHash)
		return tx.Bucket(bucketEntries).Put(itob(fileID), value)
	})
}

// AssociatedChunk returns the chunk id recorded for the file's content
// hash, or ChunkNone when the file has no entry.
func (s *Store) AssociatedChunk(_ context.Context, f scan.FileRef) (scan.ChunkID, error) {
	var id scan.ChunkID
	err := s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bucketEntries).Get(itob(f.ID()))
		if len(value) < 8 {
			return nil
		}
		id = scan.ChunkID(binary.BigEndian.Uint64(value))
		return nil
	})
	if err != nil {
		return scan.ChunkNone, fmt.Errorf("failed to look up chunk for %s: %w", f.Path(), err)
	}
	return id, nil
}

// Attach associates a registered chunk with the local project. Attaching an
// unregistered or empty chunk fails; the engine invalidates such chunks for
// the rest of the session.
func (s *Store) Attach(_ context.Context, id scan.ChunkID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		hash := tx.Bucket(bucketChunks).Get(itob(int64(id)))
		if hash == nil {
			return fmt.Errorf("chunk %d is not registered", id)
		}
		if len(hash) == 0 {
			return fmt.Errorf("chunk %d has no content hash", id)
		}
		stamp := itob(time.Now().UnixNano())
		return tx.Bucket(bucketAttached).Put(itob(int64(id)), stamp)
	})
}

// Attached reports whether the chunk is attached to the local project.
func (s *Store) Attached(id scan.ChunkID) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(bucketAttached).Get(itob(int64(id))) != nil
		return nil
	})
	return ok, err
}

// ClearEntry removes the file's content-hash entry. Called when the file's
// chunk turned out to be invalidated and the file must fully reindex.
func (s *Store) ClearEntry(_ context.Context, fileID int64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete(itob(fileID))
	})
	if err != nil {
		return fmt.Errorf("failed to clear chunk entry for file %d: %w", fileID, err)
	}
	return nil
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Store is the SQLite-backed session store. It is safe for concurrent use;
// the connection pool is limited to a single writer to avoid lock
// contention, and WAL mode allows concurrent readers.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the store at path. An empty path opens an
// in-memory store for testing.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id            INTEGER PRIMARY KEY,
		path          TEXT NOT NULL UNIQUE,
		size          INTEGER NOT NULL,
		mtime_ns      INTEGER NOT NULL,
		file_type     TEXT NOT NULL DEFAULT '',
		is_dir        INTEGER NOT NULL DEFAULT 0,
		fully_indexed INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS index_stamps (
		file_id  INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		index_id TEXT NOT NULL,
		stamp_ns INTEGER NOT NULL,
		PRIMARY KEY (file_id, index_id)
	);

	CREATE INDEX IF NOT EXISTS idx_stamps_index ON index_stamps(index_id);

	CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scan_history (
		id          INTEGER PRIMARY KEY,
		started_at  INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		files       INTEGER NOT NULL,
		dirs        INTEGER NOT NULL,
		indexed     INTEGER NOT NULL,
		up_to_date  INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.SetState(context.Background(), StateKeySchemaVersion, strconv.Itoa(SchemaVersion))
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertFile inserts or refreshes the record for rec.Path and returns its
// stable id. When size or mtime changed since the last scan, the
// fully-indexed marker is reset so the decision engine reconsiders the file.
func (s *Store) UpsertFile(ctx context.Context, rec *FileRecord) (int64, error) {
	res := s.db.QueryRowContext(ctx, `
		INSERT INTO files (path, size, mtime_ns, file_type, is_dir)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mtime_ns = excluded.mtime_ns,
			file_type = excluded.file_type,
			is_dir = excluded.is_dir,
			fully_indexed = CASE
				WHEN files.size = excluded.size AND files.mtime_ns = excluded.mtime_ns
				THEN files.fully_indexed ELSE 0 END
		RETURNING id, fully_indexed`,
		rec.Path, rec.Size, rec.ModTime.UnixNano(), rec.FileType, boolToInt(rec.IsDir))

	var fullyIndexed int
	if err := res.Scan(&rec.ID, &fullyIndexed); err != nil {
		return 0, fmt.Errorf("failed to upsert file %s: %w", rec.Path, err)
	}
	rec.FullyIndexed = fullyIndexed != 0
	return rec.ID, nil
}

// FileByPath returns the record for path, or nil if the path is untracked.
func (s *Store) FileByPath(ctx context.Context, path string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, size, mtime_ns, file_type, is_dir, fully_indexed
		FROM files WHERE path = ?`, path)
	return scanFileRow(row)
}

// FileByID returns the record for id, or nil if unknown.
func (s *Store) FileByID(ctx context.Context, id int64) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, size, mtime_ns, file_type, is_dir, fully_indexed
		FROM files WHERE id = ?`, id)
	return scanFileRow(row)
}

func scanFileRow(row *sql.Row) (*FileRecord, error) {
	var rec FileRecord
	var mtimeNS int64
	var isDir, fullyIndexed int
	err := row.Scan(&rec.ID, &rec.Path, &rec.Size, &mtimeNS, &rec.FileType, &isDir, &fullyIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file record: %w", err)
	}
	rec.ModTime = time.Unix(0, mtimeNS)
	rec.IsDir = isDir != 0
	rec.FullyIndexed = fullyIndexed != 0
	return &rec, nil
}

// SetFullyIndexed flips the fully-indexed marker for a file.
func (s *Store) SetFullyIndexed(ctx context.Context, fileID int64, v bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE files SET fully_indexed = ? WHERE id = ?`, boolToInt(v), fileID)
	if err != nil {
		return fmt.Errorf("failed to set fully-indexed marker: %w", err)
	}
	return nil
}

// Stamp returns the recorded indexing stamp for (file, index).
// The second result is false when no stamp is recorded.
func (s *Store) Stamp(ctx context.Context, fileID int64, indexID string) (int64, bool, error) {
	var stamp int64
	err := s.db.QueryRowContext(ctx,
		`SELECT stamp_ns FROM index_stamps WHERE file_id = ? AND index_id = ?`,
		fileID, indexID).Scan(&stamp)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read stamp: %w", err)
	}
	return stamp, true, nil
}

// PutStamps writes a batch of per-index stamps for one file in a single
// transaction. This is the flush target of the stamp cache.
func (s *Store) PutStamps(ctx context.Context, fileID int64, stamps map[string]int64) error {
	if len(stamps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin stamp flush: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_stamps (file_id, index_id, stamp_ns) VALUES (?, ?, ?)
		ON CONFLICT(file_id, index_id) DO UPDATE SET stamp_ns = excluded.stamp_ns`)
	if err != nil {
		return fmt.Errorf("failed to prepare stamp upsert: %w", err)
	}
	defer stmt.Close()

	for indexID, stamp := range stamps {
		if _, err := stmt.ExecContext(ctx, fileID, indexID, stamp); err != nil {
			return fmt.Errorf("failed to write stamp for %s: %w", indexID, err)
		}
	}
	return tx.Commit()
}

// DropStamps deletes the recorded stamps for the given indexes on one file.
func (s *Store) DropStamps(ctx context.Context, fileID int64, indexIDs []string) error {
	if len(indexIDs) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(indexIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(indexIDs)+1)
	args = append(args, fileID)
	for _, id := range indexIDs {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM index_stamps WHERE file_id = ? AND index_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to drop stamps: %w", err)
	}
	return nil
}

// ClearIndexStamps deletes every stamp recorded for one index. Used when an
// index is rebuilt from scratch.
func (s *Store) ClearIndexStamps(ctx context.Context, indexID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM index_stamps WHERE index_id = ?`, indexID); err != nil {
		return fmt.Errorf("failed to clear stamps for %s: %w", indexID, err)
	}
	// Files previously considered done must be revisited.
	if _, err := s.db.ExecContext(ctx, `UPDATE files SET fully_indexed = 0`); err != nil {
		return fmt.Errorf("failed to reset fully-indexed markers: %w", err)
	}
	return nil
}

// RecordScan appends one scan pass to the history table.
func (s *Store) RecordScan(ctx context.Context, rec ScanRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_history (started_at, duration_ms, files, dirs, indexed, up_to_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.UnixNano(), rec.Duration.Milliseconds(),
		rec.Files, rec.Dirs, rec.Indexed, rec.UpToDate)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// RecentScans returns up to limit scan records, newest first.
func (s *Store) RecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT started_at, duration_ms, files, dirs, indexed, up_to_date
		FROM scan_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan history: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var startedNS, durationMS int64
		if err := rows.Scan(&startedNS, &durationMS,
			&rec.Files, &rec.Dirs, &rec.Indexed, &rec.UpToDate); err != nil {
			return nil, fmt.Errorf("failed to read scan record: %w", err)
		}
		rec.StartedAt = time.Unix(0, startedNS)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteFile removes a file record; its stamps cascade away with it.
func (s *Store) DeleteFile(ctx context.Context, fileID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	return nil
}

// Stats returns the number of tracked files and how many are fully indexed.
func (s *Store) Stats(ctx context.Context) (total, fullyIndexed int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(fully_indexed), 0) FROM files`).Scan(&total, &fullyIndexed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read store stats: %w", err)
	}
	return total, fullyIndexed, nil
}

// GetState reads a value from the key-value state table.
// Returns an empty string when the key is absent.
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read state %s: %w", key, err)
	}
	return value, nil
}

// SetState writes a value to the key-value state table.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write state %s: %w", key, err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

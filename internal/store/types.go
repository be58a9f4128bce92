// Package store provides SQLite persistence for the scan session: the file
// table with stable integer identities, per-(file, index) indexing stamps,
// and a small key-value state table.
package store

import "time"

// FileRecord is a tracked file in the store. ID is the SQLite rowid and
// serves as the stable integer identity the decision engine requires.
type FileRecord struct {
	ID           int64
	Path         string // Relative to project root
	Size         int64
	ModTime      time.Time
	FileType     string // Detected language or file kind
	IsDir        bool
	FullyIndexed bool
}

// ScanRecord is one completed scan pass in the history table.
type ScanRecord struct {
	StartedAt time.Time
	Duration  time.Duration
	Files     int64
	Dirs      int64
	Indexed   int64
	UpToDate  int64
}

// State keys used by the scan command.
const (
	// StateKeyLastScan stores the RFC3339 timestamp of the last completed scan.
	StateKeyLastScan = "last_scan_at"
	// StateKeySchemaVersion stores the store schema version.
	StateKeySchemaVersion = "schema_version"
)

// SchemaVersion is the current store schema version.
const SchemaVersion = 1

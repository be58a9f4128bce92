// Package index provides the index registry, the concrete index
// implementations (full-text, file-type, file-metadata), and the
// storage-facing service the decision engine drives.
package index

import (
	"github.com/scandex-dev/scandex/internal/scan"
)

// Built-in index ids, in registration order.
const (
	// IndexFullText is the bleve-backed full-text index over file content.
	IndexFullText scan.IndexID = "fulltext"
	// IndexFileType records each file's detected type; it doubles as the
	// aggregate indexed-state check for the fast path.
	IndexFileType scan.IndexID = "filetype"
	// IndexFileMeta records size and mtime metadata for files and directories.
	IndexFileMeta scan.IndexID = "filemeta"
)

// Definition describes one registered index.
type Definition struct {
	ID scan.IndexID

	// NeedsContent marks indexes that must load file content to build.
	// Content-less indexes (NeedsContent false) are computable from file
	// metadata alone and are applied even to oversized files.
	NeedsContent bool

	// AppliesToDirs marks content-less indexes that also cover directories.
	AppliesToDirs bool

	// FileTypes restricts the index to the listed types. Empty means the
	// index applies to every file type.
	FileTypes []string
}

// AppliesTo reports whether the definition covers the file.
func (d Definition) AppliesTo(f scan.FileRef) bool {
	if f.IsDir() {
		return !d.NeedsContent && d.AppliesToDirs
	}
	if len(d.FileTypes) == 0 {
		return true
	}
	for _, ft := range d.FileTypes {
		if ft == f.FileType() {
			return true
		}
	}
	return false
}

// Registry holds the immutable, ordered index definitions for a session.
type Registry struct {
	defs []Definition
	byID map[scan.IndexID]Definition
}

var _ scan.Registry = (*Registry)(nil)

// NewRegistry creates a registry from definitions in registration order.
func NewRegistry(defs ...Definition) *Registry {
	byID := make(map[scan.IndexID]Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return &Registry{defs: defs, byID: byID}
}

// DefaultDefinitions returns the built-in index set.
func DefaultDefinitions() []Definition {
	return []Definition{
		{ID: IndexFullText, NeedsContent: true},
		{ID: IndexFileType},
		{ID: IndexFileMeta, AppliesToDirs: true},
	}
}

// Candidates returns the ordered ids of definitions that may apply to the
// file. The decision engine filters for content-needing indexes itself.
func (r *Registry) Candidates(f scan.FileRef) []scan.IndexID {
	ids := make([]scan.IndexID, 0, len(r.defs))
	for _, d := range r.defs {
		if d.AppliesTo(f) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// ContentLess returns the content-less index ids for the file kind.
func (r *Registry) ContentLess(isDir bool) []scan.IndexID {
	ids := make([]scan.IndexID, 0, len(r.defs))
	for _, d := range r.defs {
		if d.NeedsContent {
			continue
		}
		if isDir && !d.AppliesToDirs {
			continue
		}
		ids = append(ids, d.ID)
	}
	return ids
}

// NeedsContent reports whether the index requires file content.
func (r *Registry) NeedsContent(id scan.IndexID) bool {
	return r.byID[id].NeedsContent
}

// Definition returns the definition for id.
func (r *Registry) Definition(id scan.IndexID) (Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// ContentIndexIDs returns the ids of all content-needing indexes. These are
// the "non-trivial" recorded states dropped when a file must fully reindex.
func (r *Registry) ContentIndexIDs() []string {
	ids := make([]string, 0, len(r.defs))
	for _, d := range r.defs {
		if d.NeedsContent {
			ids = append(ids, string(d.ID))
		}
	}
	return ids
}

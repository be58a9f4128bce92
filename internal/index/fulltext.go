package index

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// FullText is the bleve-backed full-text index over file content.
// Documents are keyed by the file's stable id so decision-engine lookups
// never depend on paths.
type FullText struct {
	mu   sync.RWMutex
	path string
	idx  bleve.Index
}

type fullTextDoc struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Hit is one full-text search result.
type Hit struct {
	FileID int64
	Path   string
	Score  float64
}

// OpenFullText opens (or creates) the full-text index at path.
// An empty path creates an in-memory index for testing.
func OpenFullText(path string) (*FullText, error) {
	idx, err := openBleve(path)
	if err != nil {
		return nil, err
	}
	return &FullText{path: path, idx: idx}, nil
}

func openBleve(path string) (bleve.Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory index: %w", err)
		}
		return idx, nil
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open full-text index: %w", err)
	}
	return idx, nil
}

func buildMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	pathField := bleve.NewTextFieldMapping()
	pathField.Store = true
	pathField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	docMapping.AddFieldMappingsAt("content", contentField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = docMapping
	return m
}

// Index adds or replaces the document for a file.
func (x *FullText) Index(fileID int64, path string, content []byte) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	doc := fullTextDoc{Path: path, Content: string(content)}
	if err := x.idx.Index(docID(fileID), doc); err != nil {
		return fmt.Errorf("failed to index %s: %w", path, err)
	}
	return nil
}

// Remove deletes the document for a file. Missing documents are a no-op.
func (x *FullText) Remove(fileID int64) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.idx.Delete(docID(fileID))
}

// Has reports whether a document exists for the file. A read failure means
// the underlying index storage is unreadable; callers surface it as a
// storage fault.
func (x *FullText) Has(fileID int64) (bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	doc, err := x.idx.Document(docID(fileID))
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}

// Search runs a match query over file content and returns up to limit hits.
func (x *FullText) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"path"}

	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("full-text search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hit := Hit{FileID: id, Score: h.Score}
		if p, ok := h.Fields["path"].(string); ok {
			hit.Path = p
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DocCount returns the number of indexed documents.
func (x *FullText) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.idx.DocCount()
}

// Reset discards the index storage and recreates it empty. This is the
// rebuild primitive used after detected corruption.
func (x *FullText) Reset() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.idx.Close(); err != nil {
		return fmt.Errorf("failed to close index for reset: %w", err)
	}
	if x.path != "" {
		if err := os.RemoveAll(x.path); err != nil {
			return fmt.Errorf("failed to remove index storage: %w", err)
		}
	}

	idx, err := openBleve(x.path)
	if err != nil {
		return err
	}
	x.idx = idx
	return nil
}

// Close closes the underlying index.
func (x *FullText) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.idx.Close()
}

func docID(fileID int64) string {
	return strconv.FormatInt(fileID, 10)
}

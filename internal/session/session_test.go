package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scandex-dev/scandex/internal/config"
	scanerrors "github.com/scandex-dev/scandex/internal/errors"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Scan.Workers = 2
	return cfg
}

// newTestSession opens a session over a small tree:
//
//	main.go
//	docs/readme.md
func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"),
		[]byte("package main\n\nfunc main() {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "readme.md"),
		[]byte("# readme\n\nindexing pipeline overview\n"), 0o644))

	s, err := Open(root, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, root
}

func TestSession_OpenRejectsSecondHolder(t *testing.T) {
	s, root := newTestSession(t)
	_ = s

	_, err := Open(root, testConfig())
	require.Error(t, err)
	assert.Equal(t, scanerrors.ErrCodeSessionLocked, scanerrors.GetCode(err))
}

func TestSession_ReopenAfterClose(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	s, err := Open(root, testConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(root, testConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSession_ScanIndexesNewFiles(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	summary, err := s.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Files)
	assert.Equal(t, int64(1), summary.Dirs)
	assert.Equal(t, int64(2), summary.Indexed)

	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), status.TotalFiles)
	assert.Equal(t, int64(3), status.FullyIndexed)
	assert.Equal(t, uint64(2), status.Documents)
	assert.NotEmpty(t, status.LastScan)
}

func TestSession_SecondScanIsIncremental(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Scan(ctx)
	require.NoError(t, err)

	summary, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Indexed)
	assert.Equal(t, int64(3), summary.UpToDate)
}

func TestSession_ModifiedFileIsReindexed(t *testing.T) {
	s, root := newTestSession(t)
	ctx := context.Background()

	_, err := s.Scan(ctx)
	require.NoError(t, err)

	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path,
		[]byte("package main\n\nfunc main() { println(42) }\n"), 0o644))
	// Force a visibly newer mtime regardless of filesystem granularity.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	summary, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Indexed)
}

func TestSession_SearchFindsIndexedContent(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Scan(ctx)
	require.NoError(t, err)

	hits, err := s.Search(ctx, "pipeline", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, filepath.Join("docs", "readme.md"), hits[0].Path)
}

func TestSession_SearchRejectsEmptyQuery(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.Search(context.Background(), "", 10)
	require.Error(t, err)
	assert.Equal(t, scanerrors.ErrCodeInvalidInput, scanerrors.GetCode(err))
}

func TestSession_RemoveTrackedDropsEverything(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.Scan(ctx)
	require.NoError(t, err)

	s.removeTracked(ctx, "main.go")

	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), status.TotalFiles)
	assert.Equal(t, uint64(1), status.Documents)
}

func TestSession_ExcludedPatternsAreSkipped(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("keep"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.tmp"), []byte("skip"), 0o644))

	cfg := testConfig()
	cfg.Paths.Exclude = []string{"*.tmp"}

	s, err := Open(root, cfg)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	summary, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Files)
}

func TestSession_ChunkCatalogDisabledByDefault(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Nil(t, s.ChunkCatalog())
}

func TestSession_ChunkCatalogEnabled(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig()
	cfg.Chunks.Enabled = true

	s, err := Open(root, cfg)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NotNil(t, s.ChunkCatalog())
}

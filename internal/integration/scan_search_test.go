package integration

// Full-flow tests: scan a tree through a session and verify the decisions,
// the persisted state, and the full-text results agree.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scandex-dev/scandex/internal/config"
	"github.com/scandex-dev/scandex/internal/session"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Scan.Workers = 4
	return cfg
}

// buildTree writes a small mixed project under a temp root.
func buildTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	files := map[string]string{
		"main.go":          "package main\n\nfunc main() { connectDatabase() }\n",
		"db/conn.go":       "package db\n\n// connectDatabase opens the pool.\nfunc connectDatabase() {}\n",
		"docs/setup.md":    "# setup\n\nconfigure the database connection pool\n",
		"web/handler.go":   "package web\n\nfunc handleRequest() {}\n",
		".gitignore":       "*.log\n",
		"server.log":       "noise that must never be indexed\n",
		"assets/notes.txt": "remember to rotate credentials quarterly\n",
	}
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestScanThenSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	root := buildTree(t)
	s, err := session.Open(root, testConfig())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	summary, err := s.Scan(ctx)
	require.NoError(t, err)

	// server.log is gitignored; the other six entries are files.
	assert.Equal(t, int64(6), summary.Files)
	assert.Equal(t, int64(6), summary.Indexed)

	hits, err := s.Search(ctx, "database", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	paths := make([]string, 0, len(hits))
	for _, h := range hits {
		paths = append(paths, h.Path)
	}
	assert.Contains(t, paths, filepath.Join("db", "conn.go"))
	assert.Contains(t, paths, filepath.Join("docs", "setup.md"))
	assert.NotContains(t, paths, "server.log")
}

func TestScanIsIdempotentAcrossSessions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	root := buildTree(t)
	ctx := context.Background()

	s, err := session.Open(root, testConfig())
	require.NoError(t, err)
	_, err = s.Scan(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// A fresh session over the same data directory must see everything as
	// already indexed.
	s, err = session.Open(root, testConfig())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	summary, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Indexed)
}

func TestModifiedContentIsSearchableAfterRescan(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	root := buildTree(t)
	s, err := session.Open(root, testConfig())
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	_, err = s.Scan(ctx)
	require.NoError(t, err)

	path := filepath.Join(root, "web", "handler.go")
	require.NoError(t, os.WriteFile(path,
		[]byte("package web\n\nfunc handleWebsocket() {}\n"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	summary, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Indexed)

	hits, err := s.Search(ctx, "handleWebsocket", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, filepath.Join("web", "handler.go"), hits[0].Path)
}

func TestScanScalesAcrossWorkers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	root := t.TempDir()
	const n = 200
	for i := 0; i < n; i++ {
		path := filepath.Join(root, fmt.Sprintf("pkg%02d", i%10), fmt.Sprintf("file%03d.go", i))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		content := fmt.Sprintf("package pkg%02d\n\nfunc Fn%03d() int { return %d }\n", i%10, i, i)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := testConfig()
	cfg.Scan.Workers = 8

	s, err := session.Open(root, cfg)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	summary, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), summary.Files)
	assert.Equal(t, int64(n), summary.Indexed)

	status, err := s.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), status.Documents)
}

package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scandex-dev/scandex/internal/scan"
	"github.com/scandex-dev/scandex/internal/stamp"
	"github.com/scandex-dev/scandex/internal/store"
)

func setupService(t *testing.T) (*Service, *store.Store, *stamp.Cache, string) {
	t.Helper()

	s, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	stamps, err := stamp.NewCache(s, 0)
	require.NoError(t, err)

	ft, err := OpenFullText("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ft.Close() })

	root := t.TempDir()
	svc := NewService(ServiceConfig{
		Registry: NewRegistry(DefaultDefinitions()...),
		Store:    s,
		Stamps:   stamps,
		FullText: ft,
		Root:     root,
	})
	return svc, s, stamps, root
}

func trackedStub(t *testing.T, s *store.Store, path string, modTime time.Time) *stubFile {
	t.Helper()

	rec := &store.FileRecord{Path: path, Size: 10, ModTime: modTime, FileType: "go"}
	id, err := s.UpsertFile(context.Background(), rec)
	require.NoError(t, err)
	return &stubFile{id: id, path: path, size: 10, modTime: modTime, fileType: "go"}
}

func TestService_StateMissingStamp(t *testing.T) {
	svc, s, _, _ := setupService(t)
	f := trackedStub(t, s, "a.go", time.Now())

	state, err := svc.State(context.Background(), f, IndexFullText)
	require.NoError(t, err)
	assert.Equal(t, scan.StateShouldIndex, state)
}

func TestService_StateUpToDateRequiresDocument(t *testing.T) {
	svc, s, _, _ := setupService(t)
	ctx := context.Background()

	mod := time.Now()
	f := trackedStub(t, s, "a.go", mod)
	require.NoError(t, s.PutStamps(ctx, f.id, map[string]int64{"fulltext": mod.UnixNano()}))

	// Stamp matches but the backing document is missing.
	state, err := svc.State(ctx, f, IndexFullText)
	require.NoError(t, err)
	assert.Equal(t, scan.StateShouldIndex, state)

	require.NoError(t, svc.fulltext.Index(f.id, f.path, []byte("package a")))

	state, err = svc.State(ctx, f, IndexFullText)
	require.NoError(t, err)
	assert.Equal(t, scan.StateUpToDate, state)
}

func TestService_StateStaleStamp(t *testing.T) {
	svc, s, _, _ := setupService(t)
	ctx := context.Background()

	mod := time.Now()
	f := trackedStub(t, s, "a.go", mod)
	require.NoError(t, s.PutStamps(ctx, f.id, map[string]int64{"filetype": mod.Add(-time.Hour).UnixNano()}))

	state, err := svc.State(ctx, f, IndexFileType)
	require.NoError(t, err)
	assert.Equal(t, scan.StateShouldIndex, state)
}

func TestService_StateNotApplicable(t *testing.T) {
	svc, _, _, _ := setupService(t)
	dir := &stubFile{id: 5, path: "pkg", isDir: true}

	state, err := svc.State(context.Background(), dir, IndexFullText)
	require.NoError(t, err)
	assert.Equal(t, scan.StateNotApplicable, state)

	state, err = svc.State(context.Background(), dir, "unknown")
	require.NoError(t, err)
	assert.Equal(t, scan.StateNotApplicable, state)
}

func TestService_AggregateUpToDate(t *testing.T) {
	svc, s, _, _ := setupService(t)
	ctx := context.Background()

	mod := time.Now()
	f := trackedStub(t, s, "a.go", mod)

	ok, err := svc.AggregateUpToDate(ctx, f)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutStamps(ctx, f.id, map[string]int64{"filetype": mod.UnixNano()}))

	ok, err = svc.AggregateUpToDate(ctx, f)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_ApplyContentLessBuffersUntilFlush(t *testing.T) {
	svc, s, stamps, _ := setupService(t)
	ctx := context.Background()

	mod := time.Now()
	f := trackedStub(t, s, "a.go", mod)

	require.NoError(t, svc.ApplyContentLess(ctx, f, IndexFileType))

	_, ok, err := s.Stamp(ctx, f.id, "filetype")
	require.NoError(t, err)
	assert.False(t, ok, "stamp stays buffered until the per-file flush")

	stamps.Flush(f.id)

	recorded, ok, err := s.Stamp(ctx, f.id, "filetype")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mod.UnixNano(), recorded)
}

func TestService_DropNonTrivialStates(t *testing.T) {
	svc, s, _, _ := setupService(t)
	ctx := context.Background()

	mod := time.Now()
	f := trackedStub(t, s, "a.go", mod)
	require.NoError(t, s.PutStamps(ctx, f.id, map[string]int64{
		"fulltext": mod.UnixNano(),
		"filetype": mod.UnixNano(),
	}))

	svc.DropNonTrivialStates(ctx, f.id)

	_, ok, err := s.Stamp(ctx, f.id, "fulltext")
	require.NoError(t, err)
	assert.False(t, ok, "content index stamp must be dropped")

	_, ok, err = s.Stamp(ctx, f.id, "filetype")
	require.NoError(t, err)
	assert.True(t, ok, "content-less stamps survive")
}

func TestService_TooLarge(t *testing.T) {
	svc, _, _, _ := setupService(t)

	small := &stubFile{id: 1, path: "a.go", size: 100}
	big := &stubFile{id: 2, path: "blob.bin", size: DefaultMaxFileSize + 1}
	bigDir := &stubFile{id: 3, path: "pkg", size: DefaultMaxFileSize + 1, isDir: true}

	assert.False(t, svc.TooLarge(small))
	assert.True(t, svc.TooLarge(big))
	assert.False(t, svc.TooLarge(bigDir))
}

func TestService_IndexContent(t *testing.T) {
	svc, s, _, root := setupService(t)
	ctx := context.Background()

	path := "greet.go"
	require.NoError(t, os.WriteFile(filepath.Join(root, path), []byte("package greet // hello"), 0o644))
	info, err := os.Stat(filepath.Join(root, path))
	require.NoError(t, err)

	f := trackedStub(t, s, path, info.ModTime())
	require.NoError(t, svc.IndexContent(ctx, f))

	state, err := svc.State(ctx, f, IndexFullText)
	require.NoError(t, err)
	assert.Equal(t, scan.StateUpToDate, state)
	assert.True(t, f.FullyIndexed())

	hits, err := svc.fulltext.Search(ctx, "hello", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, f.id, hits[0].FileID)
}

func TestService_RebuildIndexWipesStampsAndDocuments(t *testing.T) {
	svc, s, _, _ := setupService(t)
	ctx := context.Background()

	mod := time.Now()
	f := trackedStub(t, s, "a.go", mod)
	require.NoError(t, svc.fulltext.Index(f.id, f.path, []byte("package a")))
	require.NoError(t, s.PutStamps(ctx, f.id, map[string]int64{"fulltext": mod.UnixNano()}))

	require.NoError(t, svc.rebuildIndex(ctx, IndexFullText))

	count, err := svc.fulltext.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	_, ok, err := s.Stamp(ctx, f.id, "fulltext")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRebuilder_RunsRequests(t *testing.T) {
	var mu sync.Mutex
	var ran []scan.IndexID

	r := NewRebuilder(func(_ context.Context, id scan.IndexID) error {
		mu.Lock()
		ran = append(ran, id)
		mu.Unlock()
		return nil
	})

	r.Start(context.Background())
	r.Request(IndexFullText)
	r.Request(IndexFileType)
	r.Stop()

	assert.ElementsMatch(t, []scan.IndexID{IndexFullText, IndexFileType}, ran)
}

func TestRebuilder_DeduplicatesQueuedRequests(t *testing.T) {
	var mu sync.Mutex
	count := 0

	r := NewRebuilder(func(_ context.Context, _ scan.IndexID) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	// Queue before the worker starts so both requests hit the same window.
	r.Request(IndexFullText)
	r.Request(IndexFullText)

	r.Start(context.Background())
	r.Stop()

	assert.Equal(t, 1, count)
}

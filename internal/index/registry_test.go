package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scandex-dev/scandex/internal/scan"
)

type stubFile struct {
	id           int64
	path         string
	size         int64
	modTime      time.Time
	fileType     string
	isDir        bool
	fullyIndexed bool
}

func (f *stubFile) ID() int64              { return f.id }
func (f *stubFile) Path() string           { return f.path }
func (f *stubFile) Valid() bool            { return true }
func (f *stubFile) IsDir() bool            { return f.isDir }
func (f *stubFile) Size() int64            { return f.size }
func (f *stubFile) ModTime() time.Time     { return f.modTime }
func (f *stubFile) FileType() string       { return f.fileType }
func (f *stubFile) FullyIndexed() bool     { return f.fullyIndexed }
func (f *stubFile) SetFullyIndexed(v bool) { f.fullyIndexed = v }

func TestRegistry_Candidates(t *testing.T) {
	r := NewRegistry(DefaultDefinitions()...)

	file := &stubFile{id: 1, path: "main.go", fileType: "go"}
	assert.Equal(t,
		[]scan.IndexID{IndexFullText, IndexFileType, IndexFileMeta},
		r.Candidates(file))

	dir := &stubFile{id: 2, path: "pkg", isDir: true}
	assert.Equal(t, []scan.IndexID{IndexFileMeta}, r.Candidates(dir))
}

func TestRegistry_CandidatesHonorFileTypes(t *testing.T) {
	r := NewRegistry(
		Definition{ID: "gosyms", NeedsContent: true, FileTypes: []string{"go"}},
		Definition{ID: IndexFileMeta, AppliesToDirs: true},
	)

	goFile := &stubFile{id: 1, path: "main.go", fileType: "go"}
	mdFile := &stubFile{id: 2, path: "README.md", fileType: "markdown"}

	assert.Equal(t, []scan.IndexID{"gosyms", IndexFileMeta}, r.Candidates(goFile))
	assert.Equal(t, []scan.IndexID{IndexFileMeta}, r.Candidates(mdFile))
}

func TestRegistry_ContentLess(t *testing.T) {
	r := NewRegistry(DefaultDefinitions()...)

	assert.Equal(t, []scan.IndexID{IndexFileType, IndexFileMeta}, r.ContentLess(false))
	assert.Equal(t, []scan.IndexID{IndexFileMeta}, r.ContentLess(true))
}

func TestRegistry_NeedsContent(t *testing.T) {
	r := NewRegistry(DefaultDefinitions()...)

	assert.True(t, r.NeedsContent(IndexFullText))
	assert.False(t, r.NeedsContent(IndexFileType))
	assert.False(t, r.NeedsContent("unknown"))
}

func TestRegistry_ContentIndexIDs(t *testing.T) {
	r := NewRegistry(DefaultDefinitions()...)
	assert.Equal(t, []string{"fulltext"}, r.ContentIndexIDs())
}

package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_BasicPatterns(t *testing.T) {
	m := New()
	m.AddPattern("*.log")
	m.AddPattern("temp/")

	assert.True(t, m.Match("error.log", false))
	assert.True(t, m.Match("logs/error.log", false))
	assert.False(t, m.Match("error.txt", false))

	assert.True(t, m.Match("temp", true))
	assert.False(t, m.Match("temp", false), "dir-only pattern must not match a file")
	assert.True(t, m.Match("temp/cache.bin", false))
}

func TestMatcher_Negation(t *testing.T) {
	m := New()
	m.AddPattern("*.log")
	m.AddPattern("!important.log")

	assert.True(t, m.Match("error.log", false))
	assert.False(t, m.Match("important.log", false))
}

func TestMatcher_AnchoredPatterns(t *testing.T) {
	m := New()
	m.AddPattern("/build")

	assert.True(t, m.Match("build", true))
	assert.False(t, m.Match("src/build", true))
}

func TestMatcher_InternalSlashAnchors(t *testing.T) {
	m := New()
	m.AddPattern("doc/frotz")

	assert.True(t, m.Match("doc/frotz", true))
	assert.False(t, m.Match("a/doc/frotz", true))
}

func TestMatcher_DoubleStar(t *testing.T) {
	m := New()
	m.AddPattern("**/generated")
	m.AddPattern("out/**")

	assert.True(t, m.Match("generated", true))
	assert.True(t, m.Match("a/b/generated", true))
	assert.True(t, m.Match("out/x/y.go", false))
	assert.False(t, m.Match("src/main.go", false))
}

func TestMatcher_QuestionMark(t *testing.T) {
	m := New()
	m.AddPattern("file?.txt")

	assert.True(t, m.Match("file1.txt", false))
	assert.False(t, m.Match("file12.txt", false))
}

func TestMatcher_CommentsAndBlanks(t *testing.T) {
	m := New()
	m.AddPattern("# a comment")
	m.AddPattern("")
	m.AddPattern(`\#literal`)

	assert.False(t, m.Match("# a comment", false))
	assert.True(t, m.Match("#literal", false))
}

func TestMatcher_NestedBase(t *testing.T) {
	m := New()
	m.AddPatternWithBase("*.tmp", "src")

	assert.True(t, m.Match("src/a.tmp", false))
	assert.True(t, m.Match("src/deep/a.tmp", false))
	assert.False(t, m.Match("a.tmp", false), "base-scoped rule must not apply outside the base")
}

func TestMatcher_AddFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("*.log\n# comment\n!keep.log\n"), 0o644))

	m := New()
	require.NoError(t, m.AddFromFile(path, ""))

	assert.True(t, m.Match("a.log", false))
	assert.False(t, m.Match("keep.log", false))
}

func TestMatcher_AddFromFileMissing(t *testing.T) {
	m := New()
	require.Error(t, m.AddFromFile(filepath.Join(t.TempDir(), "absent"), ""))
}

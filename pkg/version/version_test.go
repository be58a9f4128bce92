package version

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Commit, info.Commit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Contains(t, info.Platform, runtime.GOOS)
}

func TestString(t *testing.T) {
	s := Get().String()

	assert.Contains(t, s, "scandex")
	assert.Contains(t, s, Version)
	assert.Contains(t, s, Commit)
}

func TestShort(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestJSON(t *testing.T) {
	out, err := Get().JSON()
	require.NoError(t, err)

	var parsed BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, Get(), parsed)
}

package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFileInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))

	info, err := GetFileInfo(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)
	assert.NotZero(t, info.ModTime)
	assert.True(t, info.Same(*info))

	changed := *info
	changed.Size++
	assert.False(t, info.Same(changed))

	_, err = GetFileInfo(filepath.Join(dir, "missing.jsonl"))
	assert.Error(t, err)

	_, err = GetFileInfo(dir)
	assert.Error(t, err)
}

func TestCalculateFileFingerprint(t *testing.T) {
	dir := t.TempDir()

	small := filepath.Join(dir, "small.jsonl")
	require.NoError(t, os.WriteFile(small, []byte("abc"), 0644))
	first, err := CalculateFileFingerprint(small)
	require.NoError(t, err)
	assert.Len(t, first, 8)

	again, err := CalculateFileFingerprint(small)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, os.WriteFile(small, []byte("abd"), 0644))
	changed, err := CalculateFileFingerprint(small)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	large := filepath.Join(dir, "large.jsonl")
	body := strings.Repeat("x", 3*fingerprintWindow)
	require.NoError(t, os.WriteFile(large, []byte(body), 0644))
	before, err := CalculateFileFingerprint(large)
	require.NoError(t, err)

	// the middle of a large file is not hashed
	middle := []byte(body)
	middle[len(middle)/2] = 'y'
	require.NoError(t, os.WriteFile(large, middle, 0644))
	after, err := CalculateFileFingerprint(large)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	tail := []byte(body)
	tail[len(tail)-1] = 'y'
	require.NoError(t, os.WriteFile(large, tail, 0644))
	after, err = CalculateFileFingerprint(large)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "nope", "state.yaml"))
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("abc"))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not: [valid yaml"), 0o644))

	s := Load(path)
	assert.Equal(t, 0, s.Len())
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	content := "processed_ids:\n  - dQw4w9WgXcQ\n  - 5f1a2b3c4d5e6f7a8b9c0d1e\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := Load(path)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("dQw4w9WgXcQ"))
	assert.True(t, s.Contains("5f1a2b3c4d5e6f7a8b9c0d1e"))
	assert.False(t, s.Contains("other"))
}

func TestAddIsMonotonicAndIdempotent(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "state.yaml"))
	s.Add("id-1")
	s.Add("id-1")
	s.Add("")

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains("id-1"))
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")

	s := Load(path)
	s.Add("zzz")
	s.Add("aaa")
	require.NoError(t, s.Save())

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	reloaded := Load(path)
	assert.Equal(t, 2, reloaded.Len())
	assert.True(t, reloaded.Contains("aaa"))
	assert.True(t, reloaded.Contains("zzz"))
}

func TestSaveWritesSortedIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")

	s := Load(path)
	s.Add("bbb")
	s.Add("aaa")
	require.NoError(t, s.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `(?s)processed_ids:.*aaa.*bbb`, string(data))
}

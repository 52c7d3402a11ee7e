package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_GetMissingKey(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	b, ok, err := s.Get("sound_states")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, b)
}

func TestFileStore_SetThenGet(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set("recent_sounds", []byte(`["rain","fire"]`)))
	require.NoError(t, s.Set("recent_sounds", []byte(`["fire"]`)))

	b, ok, err := s.Get("recent_sounds")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `["fire"]`, string(b))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "recent_sounds.json", entries[0].Name())
}

func TestFileStore_RejectsPathLikeKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	err = s.Set("../escape", []byte("x"))
	require.ErrorIs(t, err, ErrInvalidKey)

	_, _, err = s.Get(filepath.Join("a", "b"))
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	require.Error(t, err)
}

func TestMemoryStore_CountsWritesAndCopies(t *testing.T) {
	m := NewMemoryStore()
	blob := []byte("abc")
	require.NoError(t, m.Set("k", blob))
	blob[0] = 'z'

	got, ok, err := m.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))

	require.NoError(t, m.Set("k", []byte("def")))
	assert.Equal(t, 2, m.Writes("k"))
	assert.Equal(t, 0, m.Writes("other"))
}

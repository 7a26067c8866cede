package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_RoundTrip(t *testing.T) {
	c := New(t.TempDir(), 16)

	content := []byte("some extracted document text that spans several write segments")
	require.NoError(t, c.Put("/docs/report.pdf", content))

	got, err := c.Get("/docs/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestCache_RoundTripIndependentOfChunkSize(t *testing.T) {
	content := bytes.Repeat([]byte("abcdefgh"), 1000)

	for _, size := range []int{1, 7, 1024, 1 << 20} {
		dir := t.TempDir()
		c := New(dir, size)
		require.NoError(t, c.Put("key", content))

		got, err := c.Get("key")
		require.NoError(t, err)
		assert.Equal(t, content, got)
	}
}

func TestCache_EmptyContent(t *testing.T) {
	c := New(t.TempDir(), 0)

	require.NoError(t, c.Put("empty", nil))
	got, err := c.Get("empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCache_MissIsDistinguishable(t *testing.T) {
	c := New(t.TempDir(), 0)

	_, err := c.Get("/never/stored")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCache_OverwriteSameKey(t *testing.T) {
	c := New(t.TempDir(), 0)

	require.NoError(t, c.Put("k", []byte("first")))
	require.NoError(t, c.Put("k", []byte("second")))

	got, err := c.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestCache_CorruptedContentFailsChecksum(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, 0)
	require.NoError(t, c.Put("k", []byte("pristine content")))

	// flip bytes in the stored content file
	entries, err := os.ReadDir(filepath.Join(dir, "content"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	path := filepath.Join(dir, "content", entries[0].Name())
	require.NoError(t, os.WriteFile(path, []byte("tampered content!"), 0o644))

	_, err = c.Get("k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestCache_DefaultsApplied(t *testing.T) {
	c := New("", 0)
	assert.Equal(t, DefaultDir, c.dir)
	assert.Equal(t, DefaultChunkSize, c.chunkSize)
}

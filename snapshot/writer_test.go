package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fork"
)

func TestWriterEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	pairs, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, pairs)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriterFragments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")

	w, err := NewWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.WriteChunk([]fork.KeyValuePair{{Key: "0xaa", Value: "0x01"}}))
	require.NoError(t, w.WriteChunk(nil), "empty chunk writes nothing")
	require.NoError(t, w.WriteChunk([]fork.KeyValuePair{
		{Key: "0xbb", Value: "0x02"},
		{Key: "0xcc", Value: "0x03"},
	}))
	require.NoError(t, w.Close())

	pairs, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []fork.KeyValuePair{
		{Key: "0xaa", Value: "0x01"},
		{Key: "0xbb", Value: "0x02"},
		{Key: "0xcc", Value: "0x03"},
	}, pairs)
}

// Concurrent leaf fetches share the writer; the result must still be
// one valid JSON array holding every pair.
func TestWriterConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")

	w, err := NewWriter(path)
	require.NoError(t, err)

	const chunks = 64
	var wg sync.WaitGroup
	for i := 0; i < chunks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair := fork.KeyValuePair{
				Key:   fmt.Sprintf("0x%02x", i),
				Value: "0x01",
			}
			assert.NoError(t, w.WriteChunk([]fork.KeyValuePair{pair}))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	pairs, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, pairs, chunks)
}

func TestCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storage.json")

	assert.False(t, Cached(path))
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
	assert.True(t, Cached(path))
	assert.False(t, Cached(dir), "a directory is not a snapshot")
}

func TestReadRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte(`[["0xaa","0x01"]`), 0o644))

	_, err := Read(path)
	assert.Error(t, err)
}

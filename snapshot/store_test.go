package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fork"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "mirror"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.WriteChunk([]fork.KeyValuePair{
		{Key: "0xbb22", Value: "0x02"},
		{Key: "0xaa11", Value: "0x01"},
	}))

	value, err := store.Get("0xaa11")
	require.NoError(t, err)
	assert.Equal(t, "0x01", value)

	value, err = store.Get("0xdead")
	require.NoError(t, err)
	assert.Empty(t, value, "absent key reads as empty")

	pairs, err := store.Pairs()
	require.NoError(t, err)
	assert.Equal(t, []fork.KeyValuePair{
		{Key: "0xaa11", Value: "0x01"},
		{Key: "0xbb22", Value: "0x02"},
	}, pairs, "iteration is in raw key order")
}

func TestStoreRejectsBadHex(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "mirror"))
	require.NoError(t, err)
	defer store.Close()

	err = store.WriteChunk([]fork.KeyValuePair{{Key: "nope", Value: "0x01"}})
	assert.ErrorIs(t, err, fork.ErrInvalidHex)
}

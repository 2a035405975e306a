package fork

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyspaceChunker(t *testing.T) {
	_, err := NewKeyspaceChunker(-1)
	require.ErrorIs(t, err, ErrInvalidLevels)

	c, err := NewKeyspaceChunker(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.TotalChunks())
}

func TestTotalChunks(t *testing.T) {
	cases := []struct {
		levels int
		want   uint64
	}{
		{0, 1},
		{1, 256},
		{2, 65536},
		{3, 16777216},
	}
	for _, tc := range cases {
		c, err := NewKeyspaceChunker(tc.levels)
		require.NoError(t, err)
		assert.Equal(t, tc.want, c.TotalChunks(), "levels=%d", tc.levels)
	}
}

func TestChildrenPartition(t *testing.T) {
	c := KeyspaceChunker{Levels: 1}

	children := c.Children([]byte{0xab})
	require.Len(t, children, 256)

	seen := make(map[string]struct{}, 256)
	for i, child := range children {
		require.Len(t, child, 2)
		assert.Equal(t, byte(0xab), child[0])
		assert.Equal(t, byte(i), child[1], "children must be ordered 00..ff")
		seen[string(child)] = struct{}{}
	}
	assert.Len(t, seen, 256, "children must be distinct")
}

// Expanding the root to the configured depth must yield exactly
// 256^levels distinct addresses covering the keyspace.
func TestLeafAddressesDistinct(t *testing.T) {
	for levels := 0; levels <= 2; levels++ {
		c := KeyspaceChunker{Levels: levels}

		addrs := [][]byte{nil}
		for depth := 0; depth < levels; depth++ {
			var next [][]byte
			for _, addr := range addrs {
				next = append(next, c.Children(addr)...)
			}
			addrs = next
		}

		require.Equal(t, c.TotalChunks(), uint64(len(addrs)), "levels=%d", levels)

		seen := make(map[string]struct{}, len(addrs))
		for _, addr := range addrs {
			require.Len(t, addr, levels)
			seen[string(addr)] = struct{}{}
		}
		assert.Len(t, seen, len(addrs), "levels=%d: duplicate chunk address", levels)
	}
}

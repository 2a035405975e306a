package fork

// KeyspaceChunker subdivides the storage keyspace into range-query
// sized chunks. Each level of depth appends one byte to the chunk
// address, multiplying the chunk count by 256; at depth 0 the whole
// keyspace is a single chunk. Pure, no I/O.
type KeyspaceChunker struct {
	Levels int
}

// NewKeyspaceChunker returns a chunker for the given depth.
func NewKeyspaceChunker(levels int) (KeyspaceChunker, error) {
	if levels < 0 {
		return KeyspaceChunker{}, ErrInvalidLevels
	}
	return KeyspaceChunker{Levels: levels}, nil
}

// TotalChunks returns 256^Levels, the number of leaf chunks the walk
// will visit.
func (c KeyspaceChunker) TotalChunks() uint64 {
	n := uint64(1)
	for i := 0; i < c.Levels; i++ {
		n *= 256
	}
	return n
}

// Children returns the 256 one-byte extensions of prefix, in order
// 0x00 through 0xff. Together they partition everything under prefix
// with no overlap and no gap.
func (c KeyspaceChunker) Children(prefix []byte) [][]byte {
	children := make([][]byte, 256)
	for i := 0; i < 256; i++ {
		child := make([]byte, len(prefix)+1)
		copy(child, prefix)
		child[len(prefix)] = byte(i)
		children[i] = child
	}
	return children
}

package snapshot

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/luxfi/fork"
)

// Store mirrors fetched pairs into a local Pebble database as raw
// bytes, for ad-hoc inspection of large snapshots. It is a secondary
// sink: the splice path reads the JSON snapshot file, never the
// store.
type Store struct {
	db *pebble.DB
}

// OpenStore opens (or creates) the mirror database at path.
func OpenStore(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open kv mirror: %w", err)
	}
	return &Store{db: db}, nil
}

// WriteChunk decodes each pair's hex and writes the raw bytes.
func (s *Store) WriteChunk(pairs []fork.KeyValuePair) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, pair := range pairs {
		key, err := fork.HexToBytes(pair.Key)
		if err != nil {
			return fmt.Errorf("key %s: %w", pair.Key, err)
		}
		value, err := fork.HexToBytes(pair.Value)
		if err != nil {
			return fmt.Errorf("value for %s: %w", pair.Key, err)
		}
		if err := batch.Set(key, value, nil); err != nil {
			return err
		}
	}
	return s.db.Apply(batch, pebble.Sync)
}

// Get returns the value stored for a hex key, or "" when absent.
func (s *Store) Get(key string) (string, error) {
	raw, err := fork.HexToBytes(key)
	if err != nil {
		return "", err
	}
	value, closer, err := s.db.Get(raw)
	if err == pebble.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return fork.BytesToHex(out), nil
}

// Pairs returns every stored entry in key order.
func (s *Store) Pairs() ([]fork.KeyValuePair, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var pairs []fork.KeyValuePair
	for iter.First(); iter.Valid(); iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		pairs = append(pairs, fork.KeyValuePair{
			Key:   fork.BytesToHex(key),
			Value: fork.BytesToHex(value),
		})
	}
	return pairs, iter.Error()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure Store implements fork.ChunkSink
var _ fork.ChunkSink = (*Store)(nil)

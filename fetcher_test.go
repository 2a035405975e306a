package fork

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSource serves a fixed pair set, returning for each prefix the
// pairs falling under it. Chunk addresses at one depth are disjoint,
// so string prefix matching assigns every pair to exactly one chunk.
type mockSource struct {
	mu    sync.Mutex
	calls int
	pairs []KeyValuePair

	failPrefix string
}

func (m *mockSource) GetPairs(_ context.Context, prefix string, _ string) ([]KeyValuePair, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.failPrefix != "" && prefix == m.failPrefix {
		return nil, errors.New("source unavailable")
	}

	var out []KeyValuePair
	for _, p := range m.pairs {
		if strings.HasPrefix(p.Key, prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// collectSink gathers chunks in memory.
type collectSink struct {
	mu    sync.Mutex
	pairs []KeyValuePair
}

func (s *collectSink) WriteChunk(pairs []KeyValuePair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = append(s.pairs, pairs...)
	return nil
}

var testPairs = []KeyValuePair{
	{Key: "0x000000", Value: "0x01"},
	{Key: "0x0001aa", Value: "0x02"},
	{Key: "0x42cd00", Value: "0x03"},
	{Key: "0x42cdef", Value: "0x04"},
	{Key: "0xff0000", Value: "0x05"},
	{Key: "0xffffff", Value: "0x06"},
}

// Traversal strategy must not change result completeness: every
// depth and either concurrency mode yields the same pair set.
func TestFetcherCompleteness(t *testing.T) {
	for levels := 0; levels <= 2; levels++ {
		for _, quick := range []bool{false, true} {
			source := &mockSource{pairs: testPairs}
			sink := &collectSink{}
			chunker := KeyspaceChunker{Levels: levels}
			tracker := NewProgressTracker(chunker.TotalChunks(), nil)

			fetcher := NewStateFetcher(source, sink, chunker, tracker, "", quick, zerolog.Nop())
			require.NoError(t, fetcher.Run(context.Background()), "levels=%d quick=%v", levels, quick)

			assert.ElementsMatch(t, testPairs, sink.pairs, "levels=%d quick=%v", levels, quick)
			assert.Equal(t, chunker.TotalChunks(), tracker.Current(),
				"levels=%d quick=%v: every chunk advances progress, empty or not", levels, quick)
			assert.Equal(t, int(chunker.TotalChunks()), source.callCount(),
				"levels=%d quick=%v: one range query per leaf chunk", levels, quick)
		}
	}
}

func TestFetcherSequentialOrder(t *testing.T) {
	source := &mockSource{pairs: testPairs}
	sink := &collectSink{}
	chunker := KeyspaceChunker{Levels: 1}
	tracker := NewProgressTracker(chunker.TotalChunks(), nil)

	fetcher := NewStateFetcher(source, sink, chunker, tracker, "", false, zerolog.Nop())
	require.NoError(t, fetcher.Run(context.Background()))

	// Sequential walk visits chunks lexicographically, so pairs land
	// in keyspace order.
	keys := make([]string, len(sink.pairs))
	for i, p := range sink.pairs {
		keys[i] = p.Key
	}
	assert.IsNonDecreasing(t, keys)
}

func TestFetcherErrorAborts(t *testing.T) {
	source := &mockSource{pairs: testPairs, failPrefix: "0x42"}
	sink := &collectSink{}
	chunker := KeyspaceChunker{Levels: 1}
	tracker := NewProgressTracker(chunker.TotalChunks(), nil)

	fetcher := NewStateFetcher(source, sink, chunker, tracker, "", false, zerolog.Nop())
	err := fetcher.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0x42")

	// Sequential walk stops at the failing chunk.
	assert.Equal(t, uint64(0x42), tracker.Current())
}

func TestFetcherQuickModeError(t *testing.T) {
	source := &mockSource{pairs: testPairs, failPrefix: "0x42"}
	sink := &collectSink{}
	chunker := KeyspaceChunker{Levels: 1}
	tracker := NewProgressTracker(chunker.TotalChunks(), nil)

	fetcher := NewStateFetcher(source, sink, chunker, tracker, "", true, zerolog.Nop())
	err := fetcher.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0x42")
}

func TestProgressTrackerObserver(t *testing.T) {
	var updates [][2]uint64
	tracker := NewProgressTracker(3, func(current, total uint64) {
		updates = append(updates, [2]uint64{current, total})
	})

	tracker.Advance()
	tracker.Advance()
	tracker.Advance()

	assert.Equal(t, [][2]uint64{{1, 3}, {2, 3}, {3, 3}}, updates)
	assert.Equal(t, uint64(3), tracker.Current())
	assert.Equal(t, uint64(3), tracker.Total())
}

func TestMultiSink(t *testing.T) {
	a := &collectSink{}
	b := &collectSink{}
	sink := MultiSink(a, b)

	require.NoError(t, sink.WriteChunk(testPairs[:2]))
	assert.Equal(t, testPairs[:2], a.pairs)
	assert.Equal(t, testPairs[:2], b.pairs)
}

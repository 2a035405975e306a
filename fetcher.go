package fork

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StateSource issues one range query: all key-value pairs whose key
// starts with prefix, as of block hash at ("" means chain head).
type StateSource interface {
	GetPairs(ctx context.Context, prefix string, at string) ([]KeyValuePair, error)
}

// ChunkSink receives each leaf chunk's pairs as they arrive. WriteChunk
// must be safe for concurrent use; quick mode calls it from up to 256
// goroutines.
type ChunkSink interface {
	WriteChunk(pairs []KeyValuePair) error
}

// MultiSink fans chunk writes out to every sink in order.
func MultiSink(sinks ...ChunkSink) ChunkSink {
	return multiSink(sinks)
}

type multiSink []ChunkSink

func (m multiSink) WriteChunk(pairs []KeyValuePair) error {
	for _, s := range m {
		if err := s.WriteChunk(pairs); err != nil {
			return err
		}
	}
	return nil
}

// StateFetcher walks the chunk tree depth-first, issuing one range
// query per leaf chunk and streaming each non-empty batch to the sink.
// With quick mode set, the 256 sibling leaves of each parent chunk are
// fetched concurrently; the fan-out never applies above the leaf
// level, bounding peak concurrency to 256 outstanding requests.
//
// An RPC error for any chunk is not retried; it propagates and aborts
// the whole walk. Recovery is operator-driven.
type StateFetcher struct {
	source   StateSource
	sink     ChunkSink
	chunker  KeyspaceChunker
	progress *ProgressTracker
	at       string
	quick    bool
	log      zerolog.Logger
}

// NewStateFetcher wires a fetcher for one session. at pins every
// query to a block hash; empty means chain head.
func NewStateFetcher(source StateSource, sink ChunkSink, chunker KeyspaceChunker, progress *ProgressTracker, at string, quick bool, log zerolog.Logger) *StateFetcher {
	return &StateFetcher{
		source:   source,
		sink:     sink,
		chunker:  chunker,
		progress: progress,
		at:       at,
		quick:    quick,
		log:      log,
	}
}

// Run walks the whole keyspace. The caller owns the sink's lifecycle:
// open it (writing the array opener) before Run and close it (writing
// the closer) after Run returns nil.
func (f *StateFetcher) Run(ctx context.Context) error {
	f.log.Info().
		Int("levels", f.chunker.Levels).
		Uint64("chunks", f.chunker.TotalChunks()).
		Bool("quick", f.quick).
		Str("at", f.at).
		Msg("fetching state")
	return f.fetch(ctx, nil, f.chunker.Levels)
}

func (f *StateFetcher) fetch(ctx context.Context, prefix []byte, remaining int) error {
	if remaining == 0 {
		return f.fetchLeaf(ctx, prefix)
	}

	children := f.chunker.Children(prefix)

	// Quick mode fans out only at the last level; anything higher
	// would multiply concurrency by 256 per level.
	if f.quick && remaining == 1 {
		g, ctx := errgroup.WithContext(ctx)
		for _, child := range children {
			child := child
			g.Go(func() error {
				return f.fetchLeaf(ctx, child)
			})
		}
		return g.Wait()
	}

	for _, child := range children {
		if err := f.fetch(ctx, child, remaining-1); err != nil {
			return err
		}
	}
	return nil
}

// fetchLeaf issues the range query for one chunk and appends any
// result to the sink. Progress advances whether or not the chunk was
// empty.
func (f *StateFetcher) fetchLeaf(ctx context.Context, prefix []byte) error {
	pairs, err := f.source.GetPairs(ctx, BytesToHex(prefix), f.at)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", BytesToHex(prefix), err)
	}
	if len(pairs) > 0 {
		if err := f.sink.WriteChunk(pairs); err != nil {
			return fmt.Errorf("chunk %s: %w", BytesToHex(prefix), err)
		}
	}
	f.progress.Advance()
	return nil
}

package snapshot

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/luxfi/fork"
)

// Session describes one snapshot fetch: the source to query, how to
// chunk the keyspace, and where progress and mirrored pairs go.
type Session struct {
	Source  fork.StateSource
	Chunker fork.KeyspaceChunker
	At      string
	Quick   bool
	Observe fork.ProgressObserver
	Mirrors []fork.ChunkSink
	Log     zerolog.Logger
}

// EnsureSnapshot writes the full-keyspace snapshot to path. When a
// cached snapshot is already present the source is never queried: a
// present file means a completed fetch, so the operator deletes it to
// force a refetch.
func (s Session) EnsureSnapshot(ctx context.Context, path string) error {
	if Cached(path) {
		s.Log.Info().Str("path", path).Msg("snapshot cache present, skipping fetch")
		return nil
	}

	writer, err := NewWriter(path)
	if err != nil {
		return err
	}

	sink := fork.ChunkSink(writer)
	if len(s.Mirrors) > 0 {
		sink = fork.MultiSink(append([]fork.ChunkSink{writer}, s.Mirrors...)...)
	}

	tracker := fork.NewProgressTracker(s.Chunker.TotalChunks(), s.Observe)
	fetcher := fork.NewStateFetcher(s.Source, sink, s.Chunker, tracker, s.At, s.Quick, s.Log)

	if err := fetcher.Run(ctx); err != nil {
		// The partial file stays put for inspection; it must be
		// deleted before a retry, or it reads as a completed fetch.
		return err
	}
	return writer.Close()
}

// Package snapshot handles the persisted snapshot file: one JSON
// array of ["0x..","0x.."] pairs built incrementally as leaf chunks
// arrive, so thousands of results append into a single valid document
// without the whole dataset held in memory. An optional Pebble store
// mirrors the raw bytes for local inspection.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/luxfi/fork"
)

// Writer appends chunk results to the snapshot file. The opening
// bracket is written on creation and the closing bracket on Close;
// fragment writes and the separator flag share one mutex so
// concurrent leaf fetches cannot interleave inside the array syntax.
type Writer struct {
	file   *os.File
	writer *bufio.Writer

	mu    sync.Mutex
	wrote bool
}

// NewWriter creates the snapshot file and writes the array opener.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}

	w := &Writer{
		file:   file,
		writer: bufio.NewWriter(file),
	}
	if _, err := w.writer.WriteString("["); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// WriteChunk appends one leaf chunk's pairs as a comma-joined
// fragment, preceded by a separator when a prior fragment exists.
// Empty chunks write nothing.
func (w *Writer) WriteChunk(pairs []fork.KeyValuePair) error {
	if len(pairs) == 0 {
		return nil
	}

	var frag bytes.Buffer
	for i, pair := range pairs {
		if i > 0 {
			frag.WriteByte(',')
		}
		data, err := json.Marshal(pair)
		if err != nil {
			return fmt.Errorf("marshal pair: %w", err)
		}
		frag.Write(data)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.wrote {
		if _, err := w.writer.WriteString(","); err != nil {
			return err
		}
	}
	if _, err := w.writer.Write(frag.Bytes()); err != nil {
		return err
	}
	w.wrote = true
	return nil
}

// Close writes the array closer and flushes the file. Call only after
// the walk completed; an aborted run leaves the partial file for the
// operator to delete.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.writer.WriteString("]"); err != nil {
		return err
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Close()
}

// Ensure Writer implements fork.ChunkSink
var _ fork.ChunkSink = (*Writer)(nil)

// Read loads a whole snapshot file. The file's presence is taken as
// "cache complete"; no further validation is attempted.
func Read(path string) ([]fork.KeyValuePair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pairs []fork.KeyValuePair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return pairs, nil
}

// Cached reports whether a snapshot file already exists at path.
func Cached(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

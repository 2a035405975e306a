package fork

import (
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
)

// ProgressObserver receives fetch progress updates.
type ProgressObserver func(current, total uint64)

// ProgressTracker counts completed leaf chunks against the known
// total. Advance is safe under concurrent leaf fetches; the tracker
// is scoped to one fetch session and keeps no state elsewhere.
type ProgressTracker struct {
	total   uint64
	current atomic.Uint64
	observe ProgressObserver
}

// NewProgressTracker returns a tracker for total chunks, reporting
// each advance to observe. observe may be nil.
func NewProgressTracker(total uint64, observe ProgressObserver) *ProgressTracker {
	return &ProgressTracker{total: total, observe: observe}
}

// Advance records one completed chunk and emits an update.
func (p *ProgressTracker) Advance() {
	current := p.current.Add(1)
	if p.observe != nil {
		p.observe(current, p.total)
	}
}

// Current returns the number of completed chunks so far.
func (p *ProgressTracker) Current() uint64 {
	return p.current.Load()
}

// Total returns the chunk count the tracker was initialized with.
func (p *ProgressTracker) Total() uint64 {
	return p.total
}

// NewBarObserver returns an observer rendering a terminal progress
// bar over total chunks.
func NewBarObserver(total uint64, description string) ProgressObserver {
	bar := progressbar.Default(int64(total), description)
	return func(current, _ uint64) {
		_ = bar.Set64(int64(current))
	}
}

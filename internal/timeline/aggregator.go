package timeline

import (
	"fmt"

	"chromavue/internal/video"
)

// Aggregator collects chunk results in whatever order workers finish and
// hands them back in chunk order.
type Aggregator struct {
	results []*video.ChunkResult
}

// NewAggregator prepares room for chunkCount results.
func NewAggregator(chunkCount int) *Aggregator {
	return &Aggregator{results: make([]*video.ChunkResult, chunkCount)}
}

// Add stores r under its chunk index.
func (a *Aggregator) Add(r video.ChunkResult) error {
	if r.ChunkIndex < 0 || r.ChunkIndex >= len(a.results) {
		return fmt.Errorf("chunk index %d out of range [0, %d)", r.ChunkIndex, len(a.results))
	}
	if a.results[r.ChunkIndex] != nil {
		return fmt.Errorf("duplicate result for chunk %d", r.ChunkIndex)
	}
	a.results[r.ChunkIndex] = &r
	return nil
}

// Received reports how many chunks have been added.
func (a *Aggregator) Received() int {
	n := 0
	for _, r := range a.results {
		if r != nil {
			n++
		}
	}
	return n
}

// Failed returns the results that carry an error, in chunk order.
func (a *Aggregator) Failed() []video.ChunkResult {
	var failed []video.ChunkResult
	for _, r := range a.results {
		if r != nil && r.Err != nil {
			failed = append(failed, *r)
		}
	}
	return failed
}

// Series concatenates samples by ascending chunk index. Chunks that never
// arrived contribute nothing.
func (a *Aggregator) Series() []video.ColorSample {
	total := 0
	for _, r := range a.results {
		if r != nil {
			total += len(r.Samples)
		}
	}
	series := make([]video.ColorSample, 0, total)
	for _, r := range a.results {
		if r != nil {
			series = append(series, r.Samples...)
		}
	}
	return series
}

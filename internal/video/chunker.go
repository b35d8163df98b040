package video

import (
	"fmt"
	"math"
)

// PlanChunks splits [0, duration) into workers equal segments, one per worker.
func PlanChunks(videoPath string, duration float64, workers int) ([]Chunk, error) {
	return PlanRange(videoPath, 0, duration, workers)
}

// PlanRange splits [offset, offset+duration) into workers equal segments.
func PlanRange(videoPath string, offset, duration float64, workers int) ([]Chunk, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: worker count must be positive, got %d", ErrInvalidConfiguration, workers)
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("%w: duration must be positive, got %v", ErrInvalidConfiguration, duration)
	}
	if !(offset >= 0) || math.IsInf(offset, 0) {
		return nil, fmt.Errorf("%w: offset must be non-negative, got %v", ErrInvalidConfiguration, offset)
	}

	chunkDur := duration / float64(workers)
	chunks := make([]Chunk, 0, workers)
	for i := 0; i < workers; i++ {
		chunks = append(chunks, Chunk{
			Index:     i,
			StartTime: offset + float64(i)*chunkDur,
			Duration:  chunkDur,
			VideoPath: videoPath,
		})
	}
	return chunks, nil
}

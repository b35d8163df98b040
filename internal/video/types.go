package video

import "fmt"

// Metadata holds the probed properties of a video
type Metadata struct {
	DurationSeconds float64
	FrameRate       float64
	TotalFrameCount int
	HDR             bool
}

// Chunk is a contiguous time segment handed to one worker
type Chunk struct {
	Index     int
	StartTime float64
	Duration  float64
	VideoPath string
}

// End returns the time at which the chunk stops
func (c Chunk) End() float64 {
	return c.StartTime + c.Duration
}

func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d [%.3fs, %.3fs)", c.Index, c.StartTime, c.End())
}

// ColorSample is the single representative pixel of one frame
type ColorSample struct {
	R, G, B uint8
}

// SampleSize is the number of bytes the decoder emits per frame (rgb24, 1x1)
const SampleSize = 3

// ChunkResult is what a worker hands back for one chunk. Samples keep
// decode order. When extraction failed Samples is empty and Err says why.
type ChunkResult struct {
	ChunkIndex int
	Samples    []ColorSample
	Err        error
}

package timeline

import (
	"errors"
	"fmt"

	"chromavue/internal/video"
)

// ErrDownsampleDegenerate is returned when there is nothing to downsample.
var ErrDownsampleDegenerate = errors.New("no samples to downsample")

// Downsample reduces samples to exactly width colors. Column i averages
// samples[floor(i*N/W) : floor((i+1)*N/W)], widened to one sample when that
// range is empty, so neighbouring columns may share a sample when N < W.
// Each channel mean is truncated to uint8.
func Downsample(samples []video.ColorSample, width int) ([]video.ColorSample, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: width must be positive, got %d", video.ErrInvalidConfiguration, width)
	}
	n := len(samples)
	if n == 0 {
		return nil, ErrDownsampleDegenerate
	}

	out := make([]video.ColorSample, width)
	for i := 0; i < width; i++ {
		start, end := groupBounds(i, n, width)
		out[i] = mean(samples[start:end])
	}
	return out, nil
}

// groupBounds computes the sample range of column i in integer arithmetic,
// which equals flooring the real-valued i*(n/width) without rounding drift.
func groupBounds(i, n, width int) (start, end int) {
	start = int(int64(i) * int64(n) / int64(width))
	end = int(int64(i+1) * int64(n) / int64(width))
	if end <= start {
		end = start + 1
	}
	return start, end
}

func mean(group []video.ColorSample) video.ColorSample {
	var r, g, b uint64
	for _, s := range group {
		r += uint64(s.R)
		g += uint64(s.G)
		b += uint64(s.B)
	}
	count := uint64(len(group))
	return video.ColorSample{
		R: uint8(r / count),
		G: uint8(g / count),
		B: uint8(b / count),
	}
}

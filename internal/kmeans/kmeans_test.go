package kmeans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromavue/internal/video"
)

func repeat(c video.ColorSample, n int) []video.ColorSample {
	out := make([]video.ColorSample, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestDominantSeparatesClusters(t *testing.T) {
	var colors []video.ColorSample
	colors = append(colors, repeat(video.ColorSample{R: 250, G: 10, B: 10}, 5)...)
	colors = append(colors, repeat(video.ColorSample{R: 10, G: 10, B: 240}, 3)...)
	colors = append(colors, video.ColorSample{R: 254, G: 6, B: 10}, video.ColorSample{R: 250, G: 10, B: 10})

	clusters := Dominant(colors, 2, 10)
	require.Len(t, clusters, 2)

	assert.Equal(t, 7, clusters[0].Size)
	assert.Equal(t, uint8(250), clusters[0].Center.R)
	assert.Equal(t, 3, clusters[1].Size)
	assert.Equal(t, video.ColorSample{R: 10, G: 10, B: 240}, clusters[1].Center)
}

func TestDominantIsDeterministic(t *testing.T) {
	colors := make([]video.ColorSample, 64)
	for i := range colors {
		colors[i] = video.ColorSample{R: uint8(i * 4), G: uint8(255 - i*3), B: uint8(i)}
	}
	assert.Equal(t, Dominant(colors, 4, 20), Dominant(colors, 4, 20))
}

func TestDominantClampsK(t *testing.T) {
	clusters := Dominant([]video.ColorSample{{R: 1}, {R: 200}}, 5, 5)
	assert.Len(t, clusters, 2)
}

func TestDominantEmpty(t *testing.T) {
	assert.Nil(t, Dominant(nil, 3, 5))
	assert.Nil(t, Dominant([]video.ColorSample{{R: 1}}, 0, 5))
}

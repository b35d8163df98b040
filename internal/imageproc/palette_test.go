package imageproc

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromavue/internal/video"
)

func TestPalette(t *testing.T) {
	entries := Palette(testRow)
	require.Len(t, entries, 3)

	assert.Equal(t, 0, entries[0].Column)
	assert.Equal(t, "#ff0000", entries[0].Hex)
	assert.InDelta(t, 0, entries[0].Hue, 1e-9)
	assert.InDelta(t, 120, entries[1].Hue, 1e-9)
	assert.InDelta(t, 240, entries[2].Hue, 1e-9)
	for _, e := range entries {
		assert.InDelta(t, 1, e.Sat, 1e-9)
		assert.InDelta(t, 0.5, e.Light, 1e-9)
	}
}

func TestToColorful(t *testing.T) {
	c := ToColorful(video.ColorSample{R: 255, G: 128, B: 0})
	assert.Equal(t, "#ff8000", c.Hex())
}

func TestWritePalette(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePalette(&buf, testRow[:1]))

	var got struct {
		Columns  []map[string]any `json:"columns"`
		Dominant []DominantColor  `json:"dominant"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Columns, 1)
	assert.Equal(t, "#ff0000", got.Columns[0]["hex"])
	assert.Contains(t, got.Columns[0], "saturation")
	assert.Equal(t, []DominantColor{{Hex: "#ff0000", Share: 1}}, got.Dominant)
}

func TestDominant(t *testing.T) {
	row := []video.ColorSample{
		{R: 0, G: 0, B: 255}, {R: 0, G: 0, B: 255},
		{R: 255, G: 255, B: 255}, {R: 0, G: 0, B: 255},
	}
	got := Dominant(row, 2)
	require.Len(t, got, 2)
	assert.Equal(t, DominantColor{Hex: "#0000ff", Share: 0.75}, got[0])
	assert.Equal(t, DominantColor{Hex: "#ffffff", Share: 0.25}, got[1])
}

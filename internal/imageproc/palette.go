package imageproc

import (
	"encoding/json"
	"io"

	"github.com/lucasb-eyer/go-colorful"

	"chromavue/internal/kmeans"
	"chromavue/internal/video"
)

// dominantColors is how many clusters the palette sidecar summarises.
const dominantColors = 5

// PaletteEntry is one column of the timeline in the palette sidecar.
type PaletteEntry struct {
	Column int     `json:"column"`
	Hex    string  `json:"hex"`
	Hue    float64 `json:"hue"`
	Sat    float64 `json:"saturation"`
	Light  float64 `json:"lightness"`
}

// ToColorful converts a sample to a colorful.Color.
func ToColorful(c video.ColorSample) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}
}

// Palette describes every column with its hex code and HSL coordinates.
func Palette(row []video.ColorSample) []PaletteEntry {
	entries := make([]PaletteEntry, len(row))
	for i, c := range row {
		col := ToColorful(c)
		h, s, l := col.Hsl()
		entries[i] = PaletteEntry{
			Column: i,
			Hex:    col.Hex(),
			Hue:    h,
			Sat:    s,
			Light:  l,
		}
	}
	return entries
}

// DominantColor is one k-means cluster of the row.
type DominantColor struct {
	Hex   string  `json:"hex"`
	Share float64 `json:"share"`
}

// PaletteFile is the JSON document written next to the image.
type PaletteFile struct {
	Columns  []PaletteEntry  `json:"columns"`
	Dominant []DominantColor `json:"dominant"`
}

// Dominant returns up to k representative colors of row, most common first.
func Dominant(row []video.ColorSample, k int) []DominantColor {
	clusters := kmeans.Dominant(row, k, 20)
	out := make([]DominantColor, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, DominantColor{
			Hex:   ToColorful(c.Center).Hex(),
			Share: float64(c.Size) / float64(len(row)),
		})
	}
	return out
}

// WritePalette writes the palette of row as indented JSON.
func WritePalette(w io.Writer, row []video.ColorSample) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(PaletteFile{
		Columns:  Palette(row),
		Dominant: Dominant(row, dominantColors),
	})
}

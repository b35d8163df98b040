package imageproc

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chromavue/internal/video"
)

// Format is the encoding of the timeline image.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat accepts png, jpeg or jpg in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png", "":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// Ext is the file extension without a dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// RenderTimeline paints column x of a len(row) x height image with row[x].
func RenderTimeline(row []video.ColorSample, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, len(row), height))
	for x, c := range row {
		col := image.NewUniform(color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		draw.Draw(img, image.Rect(x, 0, x+1, height), col, image.Point{}, draw.Src)
	}
	return img
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	default:
		return png.Encode(w, img)
	}
}

// OutputPath names the artifact <basename>_<width>_<height>.<ext>, placed in
// dir, or next to the input when dir is empty.
func OutputPath(videoPath, dir string, width, height int, ext string) string {
	base := filepath.Base(videoPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if dir == "" {
		dir = filepath.Dir(videoPath)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d_%d.%s", base, width, height, ext))
}

// Writer renders rows to files next to the source video.
type Writer struct {
	Height      int
	Format      Format
	OutDir      string
	PaletteJSON bool
}

// Write renders row for videoPath and returns the image path.
func (w *Writer) Write(videoPath string, row []video.ColorSample) (string, error) {
	format := w.Format
	if format == "" {
		format = FormatPNG
	}
	path := OutputPath(videoPath, w.OutDir, len(row), w.Height, format.Ext())

	if err := writeFile(path, func(f io.Writer) error {
		return Encode(f, RenderTimeline(row, w.Height), format)
	}); err != nil {
		return "", fmt.Errorf("error writing timeline image: %w", err)
	}

	if w.PaletteJSON {
		palettePath := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		if err := writeFile(palettePath, func(f io.Writer) error {
			return WritePalette(f, row)
		}); err != nil {
			return "", fmt.Errorf("error writing palette: %w", err)
		}
	}

	return path, nil
}

// writeFile writes through a temp file so a failed encode leaves nothing behind.
func writeFile(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

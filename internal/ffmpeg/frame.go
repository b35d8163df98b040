package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"chromavue/internal/video"
)

// probeOutput is the subset of ffprobe's JSON we read.
type probeOutput struct {
	Streams []struct {
		RFrameRate    string `json:"r_frame_rate"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		ColorTransfer string `json:"color_transfer"`
		ColorSpace    string `json:"color_space"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Prober reads duration and frame rate with ffprobe.
type Prober struct {
	Binary string
}

// NewProber returns a prober using the ffprobe found in $PATH.
func NewProber() *Prober {
	return &Prober{Binary: "ffprobe"}
}

// Probe returns the metadata of the first video stream of path.
func (p *Prober) Probe(ctx context.Context, path string) (video.Metadata, error) {
	bin := p.Binary
	if bin == "" {
		bin = "ffprobe"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return video.Metadata{}, fmt.Errorf("%w: %s not found in $PATH: %v", video.ErrProbe, bin, err)
	}

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "format=duration:stream=r_frame_rate,avg_frame_rate,color_transfer,color_space",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return video.Metadata{}, fmt.Errorf("%w: ffprobe error: %v: %s", video.ErrProbe, err, strings.TrimSpace(stderr.String()))
	}

	return parseProbeOutput(output)
}

func parseProbeOutput(output []byte) (video.Metadata, error) {
	var data probeOutput
	if err := json.Unmarshal(output, &data); err != nil {
		return video.Metadata{}, fmt.Errorf("%w: error parsing ffprobe output: %v", video.ErrProbe, err)
	}

	if len(data.Streams) == 0 {
		return video.Metadata{}, fmt.Errorf("%w: no video streams found", video.ErrProbe)
	}
	stream := data.Streams[0]

	duration, err := strconv.ParseFloat(strings.TrimSpace(data.Format.Duration), 64)
	if err != nil || !(duration > 0) || math.IsInf(duration, 0) {
		return video.Metadata{}, fmt.Errorf("%w: invalid duration %q", video.ErrProbe, data.Format.Duration)
	}

	// r_frame_rate is what ffmpeg emits frames at; avg_frame_rate is the fallback.
	fps, err := parseFrameRate(stream.RFrameRate)
	if err != nil {
		fps, err = parseFrameRate(stream.AvgFrameRate)
		if err != nil {
			return video.Metadata{}, fmt.Errorf("%w: %v", video.ErrProbe, err)
		}
	}

	return video.Metadata{
		DurationSeconds: duration,
		FrameRate:       fps,
		TotalFrameCount: int(duration * fps),
		HDR:             isHDR(stream.ColorTransfer, stream.ColorSpace),
	}, nil
}

// parseFrameRate accepts "24000/1001" or a plain number.
func parseFrameRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	var fps float64
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, fmt.Errorf("invalid framerate format %q", s)
		}
		fps = n / d
	} else {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid framerate %q: %w", s, err)
		}
		fps = f
	}
	if !(fps > 0) || math.IsInf(fps, 0) {
		return 0, fmt.Errorf("invalid framerate %q", s)
	}
	return fps, nil
}

// isHDR checks the common PQ/HLG and BT.2020 markers.
func isHDR(transfer, colorSpace string) bool {
	t := strings.ToLower(transfer)
	if strings.Contains(t, "smpte2084") || strings.Contains(t, "arib-std-b67") {
		return true
	}
	return strings.Contains(strings.ToLower(colorSpace), "bt2020")
}

// ParseTimeString converts "90", "90.5" or "00:01:30" to seconds.
func ParseTimeString(timeStr string) (float64, error) {
	timeStr = strings.TrimSpace(timeStr)
	if seconds, err := strconv.ParseFloat(timeStr, 64); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative time: %s", timeStr)
		}
		return seconds, nil
	}

	parts := strings.Split(timeStr, ":")
	if len(parts) == 3 {
		h, errH := strconv.ParseFloat(parts[0], 64)
		m, errM := strconv.ParseFloat(parts[1], 64)
		s, errS := strconv.ParseFloat(parts[2], 64)

		if errH == nil && errM == nil && errS == nil && h >= 0 && m >= 0 && s >= 0 {
			return h*3600 + m*60 + s, nil
		}
	}

	return 0, fmt.Errorf("invalid time format: %s", timeStr)
}

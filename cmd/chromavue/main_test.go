package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromavue/internal/config"
)

func TestParseArgsFlagsAroundPath(t *testing.T) {
	var out bytes.Buffer
	a, err := parseArgs([]string{"--width", "640", "movie.mp4", "--palette", "--chunk-timeout", "30s"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "movie.mp4", a.videoPath)
	assert.Equal(t, 640, a.width)
	assert.True(t, a.palette)
	assert.Equal(t, 30*time.Second, a.chunkTimeout)
	assert.True(t, a.set["width"])
	assert.False(t, a.set["height"])
}

func TestParseArgsRejectsSecondPath(t *testing.T) {
	_, err := parseArgs([]string{"a.mp4", "b.mp4"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseArgsUnknownFlag(t *testing.T) {
	_, err := parseArgs([]string{"--colour", "red"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestApplyOnlyOverridesPassedFlags(t *testing.T) {
	a, err := parseArgs([]string{"--height", "50", "--no-progress", "clip.mp4"}, &bytes.Buffer{})
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Width = 1234
	a.apply(&cfg)

	assert.Equal(t, "clip.mp4", cfg.VideoPath)
	assert.Equal(t, 1234, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
	assert.False(t, cfg.Progress)
}

func TestRunHelp(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"--help"}, &out))
	assert.Contains(t, out.String(), "Usage: chromavue")
}

func TestRunUsageErrors(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0o644))

	tests := map[string][]string{
		"no video":        {},
		"missing video":   {filepath.Join(dir, "nope.mp4")},
		"bad width":       {"--width", "0", video},
		"bad format":      {"--format", "gif", video},
		"bad log level":   {"--log-level", "loud", video},
		"missing config":  {"--config", filepath.Join(dir, "none.yaml"), video},
		"window reversed": {"--start", "10", "--end", "5", video},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Equal(t, exitUsage, run(args, &out))
			assert.Contains(t, out.String(), "Error:")
		})
	}
}

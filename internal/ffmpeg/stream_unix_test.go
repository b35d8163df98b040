//go:build unix

package ffmpeg

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromavue/internal/video"
)

// fakeFFmpeg writes an executable shell script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// processGone reports whether pid has exited. A zombie counts as gone since
// nothing in the test is its parent any more.
func processGone(pid int) bool {
	if err := syscall.Kill(pid, 0); errors.Is(err, syscall.ESRCH) {
		return true
	}
	stat, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	// state follows the parenthesised command name
	if i := strings.LastIndexByte(string(stat), ')'); i >= 0 && i+2 < len(stat) {
		return stat[i+2] == 'Z'
	}
	return false
}

func closeWithin(t *testing.T, p *Process, d time.Duration) error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- p.Close() }()
	select {
	case err := <-errc:
		return err
	case <-time.After(d):
		t.Fatal("Close did not return")
		return nil
	}
}

func TestProcessCleanExit(t *testing.T) {
	bin := fakeFFmpeg(t, `printf '\001\002\003\004\005\006'`)

	p, err := StartColorStream(bin, ColorStreamOptions{Path: "clip.mp4", Duration: 1})
	require.NoError(t, err)

	data, err := io.ReadAll(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, data)
	assert.NoError(t, closeWithin(t, p, 5*time.Second))
	assert.NoError(t, p.Terminate())
}

func TestProcessTerminateKillsGroup(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	bin := fakeFFmpeg(t, `printf 'abcdef'
sleep 60 &
echo $! > `+pidFile+`
wait`)

	p, err := StartColorStream(bin, ColorStreamOptions{Path: "clip.mp4", Duration: 1})
	require.NoError(t, err)

	buf := make([]byte, 6)
	_, err = io.ReadFull(p, buf)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(buf))

	var childPid int
	require.Eventually(t, func() bool {
		raw, err := os.ReadFile(pidFile)
		if err != nil {
			return false
		}
		childPid, err = strconv.Atoi(strings.TrimSpace(string(raw)))
		return err == nil && childPid > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Terminate())

	err = closeWithin(t, p, 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg error: signal: killed")
	assert.Eventually(t, func() bool { return processGone(childPid) }, 5*time.Second, 10*time.Millisecond,
		"background child of the decoder survived")

	assert.NoError(t, p.Terminate(), "terminate after reap is a no-op")
}

func TestProcessExitErrorCarriesStderr(t *testing.T) {
	bin := fakeFFmpeg(t, `echo "moov atom not found" >&2
exit 1`)

	p, err := StartColorStream(bin, ColorStreamOptions{Path: "clip.mp4", Duration: 1})
	require.NoError(t, err)

	_, _ = io.ReadAll(p)
	err = closeWithin(t, p, 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Contains(t, err.Error(), "moov atom not found")
}

func TestProcessTerminateWhileClosing(t *testing.T) {
	// stdout is closed up front, so Close goes straight to waiting on a
	// leader that will not exit by itself.
	bin := fakeFFmpeg(t, `exec sleep 60 1>&-`)

	p, err := StartColorStream(bin, ColorStreamOptions{Path: "clip.mp4", Duration: 1})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- p.Close() }()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.reaping
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, p.Terminate())

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signal: killed")
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after terminate")
	}
	assert.NoError(t, p.Terminate())
}

func TestDecoderFeedsFrameProcessor(t *testing.T) {
	bin := fakeFFmpeg(t, `printf '\012\024\036\050\062\074'`)

	fp := video.NewFrameProcessor(&Decoder{Binary: bin, Threads: 1}, nil, nil)
	res := fp.Extract(video.Chunk{Index: 0, Duration: 1, VideoPath: "clip.mp4"})

	require.NoError(t, res.Err)
	assert.Equal(t, []video.ColorSample{{R: 10, G: 20, B: 30}, {R: 40, G: 50, B: 60}}, res.Samples)
}

func TestDecoderFailingProcessEmptiesChunk(t *testing.T) {
	bin := fakeFFmpeg(t, `printf '\001\002\003'
echo "decode error" >&2
exit 1`)

	fp := video.NewFrameProcessor(&Decoder{Binary: bin, Threads: 1}, nil, nil)
	res := fp.Extract(video.Chunk{Index: 3, Duration: 1, VideoPath: "clip.mp4"})

	assert.ErrorIs(t, res.Err, video.ErrRead)
	assert.Contains(t, res.Err.Error(), "decode error")
	assert.Empty(t, res.Samples)
}

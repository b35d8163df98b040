package ffmpeg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"chromavue/internal/video"
)

// maxStderr bounds how much decoder stderr is kept for error messages.
const maxStderr = 4 << 10

// ColorStreamOptions describes one segment to reduce to 1x1 rgb24 frames.
type ColorStreamOptions struct {
	Path     string
	Start    float64
	Duration float64
	Threads  int
}

// Args builds the ffmpeg argument list. -ss/-t are input options so ffmpeg
// seeks before decoding and stops after Duration seconds.
func (o ColorStreamOptions) Args() []string {
	threads := o.Threads
	if threads <= 0 {
		threads = 1
	}
	return []string{
		"-nostdin",
		"-v", "error",
		"-ss", formatSeconds(o.Start),
		"-t", formatSeconds(o.Duration),
		"-i", o.Path,
		"-an",
		"-vf", "scale=1:1",
		"-pix_fmt", "rgb24",
		"-vcodec", "rawvideo",
		"-f", "rawvideo",
		"-threads", strconv.Itoa(threads),
		"pipe:1",
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}

// Process is a running ffmpeg emitting 3-byte records on stdout.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *limitedBuffer

	mu      sync.Mutex
	reaping bool
	waited  bool
}

// StartColorStream starts ffmpeg for opts in its own process group.
func StartColorStream(binary string, opts ColorStreamOptions) (*Process, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in $PATH: %w", err)
	}

	// Not CommandContext: the decoder must not die with a context, only when
	// the shutdown controller terminates it.
	cmd := exec.Command(binary, opts.Args()...)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	stderr := &limitedBuffer{max: maxStderr}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &Process{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// Read reads decoder output.
func (p *Process) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close closes stdout and waits for ffmpeg to exit. A non-zero exit is
// reported together with whatever ffmpeg wrote to stderr.
func (p *Process) Close() error {
	_ = p.stdout.Close()

	p.mu.Lock()
	p.reaping = true
	p.mu.Unlock()

	err := p.cmd.Wait()

	p.mu.Lock()
	p.waited = true
	p.mu.Unlock()

	if err != nil {
		if msg := strings.TrimSpace(p.stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg error: %w - stderr: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg error: %w", err)
	}
	return nil
}

// Terminate kills ffmpeg's process group. Once Close has started waiting,
// only the leader is killed, through os.Process, which never signals a
// reaped pid. After Close returns it is a no-op.
func (p *Process) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.waited || p.cmd.Process == nil:
		return nil
	case p.reaping:
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		return nil
	}
	return killProcessGroup(p.cmd)
}

// Decoder opens ffmpeg color streams for chunks.
type Decoder struct {
	Binary  string
	Threads int
}

// NewDecoder returns a decoder using the ffmpeg found in $PATH with one
// decoding thread per process.
func NewDecoder() *Decoder {
	return &Decoder{Binary: "ffmpeg", Threads: 1}
}

// Open implements video.Decoder.
func (d *Decoder) Open(chunk video.Chunk) (video.Stream, error) {
	if chunk.VideoPath == "" {
		return nil, errors.New("empty video path")
	}
	return StartColorStream(d.Binary, ColorStreamOptions{
		Path:     chunk.VideoPath,
		Start:    chunk.StartTime,
		Duration: chunk.Duration,
		Threads:  d.Threads,
	})
}

// limitedBuffer keeps the first max bytes written to it.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}

func (l *limitedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

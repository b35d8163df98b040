package video

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Stream is a running decoder emitting SampleSize-byte records.
type Stream interface {
	io.Reader
	// Close releases the output pipe and waits for the process to exit.
	Close() error
	// Terminate kills the process (and its group) without waiting.
	Terminate() error
}

// Decoder starts a color stream for one chunk.
type Decoder interface {
	Open(chunk Chunk) (Stream, error)
}

// Terminator is anything that can be forcibly stopped.
type Terminator = interface {
	Terminate() error
}

// Tracker keeps in-flight streams reachable so they can be torn down on interrupt.
type Tracker interface {
	Track(t Terminator) (release func())
}

// FrameCounter receives one increment per sample read.
type FrameCounter interface {
	Inc()
}

// FailureRecorder is notified of chunks that produced no samples.
type FailureRecorder interface {
	ChunkFailed(reason string)
}

// FrameProcessor is the per-chunk extraction worker. It has no notion of
// cancellation; the process it drives is terminated from outside.
type FrameProcessor struct {
	decoder  Decoder
	counter  FrameCounter
	tracker  Tracker
	failures FailureRecorder
	logger   *zap.Logger
	timeout  time.Duration
}

// FrameProcessorOption configures optional collaborators.
type FrameProcessorOption func(*FrameProcessor)

// WithTracker registers every opened stream with t.
func WithTracker(t Tracker) FrameProcessorOption {
	return func(fp *FrameProcessor) { fp.tracker = t }
}

// WithChunkTimeout terminates a chunk's decoder after d. Zero disables it.
func WithChunkTimeout(d time.Duration) FrameProcessorOption {
	return func(fp *FrameProcessor) { fp.timeout = d }
}

// WithFailureRecorder reports failed chunks to r.
func WithFailureRecorder(r FailureRecorder) FrameProcessorOption {
	return func(fp *FrameProcessor) { fp.failures = r }
}

// NewFrameProcessor creates a worker reading from decoder and counting into counter.
func NewFrameProcessor(decoder Decoder, counter FrameCounter, logger *zap.Logger, opts ...FrameProcessorOption) *FrameProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	fp := &FrameProcessor{
		decoder: decoder,
		counter: counter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(fp)
	}
	return fp
}

// Extract reads every sample of chunk in decode order. It never fails the
// whole run: on spawn or read errors it logs, and returns an empty result
// with Err set.
func (fp *FrameProcessor) Extract(chunk Chunk) ChunkResult {
	log := fp.logger.With(zap.Int("chunk", chunk.Index))

	samples, err := fp.extract(chunk)
	if err != nil {
		log.Warn("chunk extraction failed, contributing no samples",
			zap.Float64("start", chunk.StartTime),
			zap.Float64("duration", chunk.Duration),
			zap.Error(err),
		)
		if fp.failures != nil {
			reason := "read"
			if errors.Is(err, ErrSpawn) {
				reason = "spawn"
			}
			fp.failures.ChunkFailed(reason)
		}
		return ChunkResult{ChunkIndex: chunk.Index, Samples: []ColorSample{}, Err: err}
	}

	log.Debug("chunk extracted", zap.Int("samples", len(samples)))
	return ChunkResult{ChunkIndex: chunk.Index, Samples: samples}
}

func (fp *FrameProcessor) extract(chunk Chunk) (samples []ColorSample, err error) {
	stream, err := fp.decoder.Open(chunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, chunk, err)
	}

	if fp.tracker != nil {
		release := fp.tracker.Track(stream)
		defer release()
	}

	var timedOut atomic.Bool
	if fp.timeout > 0 {
		timer := time.AfterFunc(fp.timeout, func() {
			timedOut.Store(true)
			_ = stream.Terminate()
		})
		defer timer.Stop()
	}

	// Close always runs so the pipe is released and the process reaped.
	defer func() {
		closeErr := stream.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("%w: %s: decoder exited: %v", ErrRead, chunk, closeErr)
		}
		if err != nil {
			samples = nil
			if timedOut.Load() {
				err = fmt.Errorf("%w (timed out after %s)", err, fp.timeout)
			}
		}
	}()

	return readSamples(bufio.NewReader(stream), fp.counter, chunk)
}

// readSamples consumes fixed-size records until a clean end of stream.
func readSamples(r io.Reader, counter FrameCounter, chunk Chunk) ([]ColorSample, error) {
	samples := make([]ColorSample, 0, 256)
	var rec [SampleSize]byte
	for {
		_, err := io.ReadFull(r, rec[:])
		if err == io.EOF {
			return samples, nil
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: %s: truncated record after %d samples", ErrRead, chunk, len(samples))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRead, chunk, err)
		}

		samples = append(samples, ColorSample{R: rec[0], G: rec[1], B: rec[2]})
		if counter != nil {
			counter.Inc()
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"chromavue/internal/metrics"
	"chromavue/internal/progress"
	"chromavue/internal/timeline"
	"chromavue/internal/video"
	"chromavue/internal/worker"
)

// Prober discovers duration and frame rate of a video.
type Prober interface {
	Probe(ctx context.Context, path string) (video.Metadata, error)
}

// RowWriter persists the downsampled row and returns where it went.
type RowWriter interface {
	Write(videoPath string, row []video.ColorSample) (string, error)
}

// WindowFunc maps the probed duration to the (offset, length) to extract.
type WindowFunc func(duration float64) (offset, length float64, err error)

// Options are the per-run parameters.
type Options struct {
	VideoPath    string
	Width        int
	Workers      int
	ChunkTimeout time.Duration
	PollInterval time.Duration
	Window       WindowFunc
}

// Result summarises a completed run.
type Result struct {
	Metadata     video.Metadata
	Chunks       []video.Chunk
	FailedChunks []video.ChunkResult
	SampleCount  int
	Progress     int64
	Row          []video.ColorSample
	OutputPath   string
}

// Pipeline wires planner, workers, monitor, aggregator and downsampler.
type Pipeline struct {
	prober  Prober
	decoder video.Decoder
	writer  RowWriter
	tracker video.Tracker
	sinkFor func(total int64) progress.Sink
	logger  *zap.Logger
	opts    Options
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithWriter sets where the final row is written.
func WithWriter(w RowWriter) Option {
	return func(p *Pipeline) { p.writer = w }
}

// WithTracker registers decoders with t so they can be killed on interrupt.
func WithTracker(t video.Tracker) Option {
	return func(p *Pipeline) { p.tracker = t }
}

// WithProgress builds a sink once the expected frame total is known.
func WithProgress(fn func(total int64) progress.Sink) Option {
	return func(p *Pipeline) { p.sinkFor = fn }
}

// New creates a pipeline.
func New(prober Prober, decoder video.Decoder, logger *zap.Logger, opts Options, options ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		prober:  prober,
		decoder: decoder,
		logger:  logger,
		opts:    opts,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Run executes one timeline render. Cancelling ctx stops dispatch of new
// chunks; running decoders are expected to be terminated by the tracker.
// A cancelled run returns video.ErrInterrupted.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	tracer := otel.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "Pipeline.Run", trace.WithAttributes(
		attribute.String("video.path", p.opts.VideoPath),
		attribute.Int("timeline.width", p.opts.Width),
		attribute.Int("workers", p.opts.Workers),
	))
	defer span.End()

	totalTimer := time.Now()
	log := p.logger

	if p.opts.Width <= 0 {
		return nil, fmt.Errorf("%w: width must be positive, got %d", video.ErrInvalidConfiguration, p.opts.Width)
	}

	// Probe
	probeStart := time.Now()
	ctxProbe, spanProbe := tracer.Start(ctx, "probe")
	meta, err := p.prober.Probe(ctxProbe, p.opts.VideoPath)
	spanProbe.End()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: during probe", video.ErrInterrupted)
		}
		if !errors.Is(err, video.ErrProbe) {
			err = fmt.Errorf("%w: %v", video.ErrProbe, err)
		}
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("probe").Observe(time.Since(probeStart).Seconds())

	log.Info("video probed",
		zap.Float64("duration_secs", meta.DurationSeconds),
		zap.Float64("fps", meta.FrameRate),
		zap.Int("total_frames", meta.TotalFrameCount),
	)
	if meta.HDR {
		log.Warn("HDR transfer characteristics detected; colors are taken without tone mapping")
	}

	// Plan
	offset, length := 0.0, meta.DurationSeconds
	expected := int64(meta.TotalFrameCount)
	if p.opts.Window != nil {
		offset, length, err = p.opts.Window(meta.DurationSeconds)
		if err != nil {
			return nil, err
		}
		expected = int64(length * meta.FrameRate)
	}

	chunks, err := video.PlanRange(p.opts.VideoPath, offset, length, p.opts.Workers)
	if err != nil {
		return nil, err
	}
	log.Info("chunks planned",
		zap.Int("chunks", len(chunks)),
		zap.Float64("offset_secs", offset),
		zap.Float64("chunk_secs", chunks[0].Duration),
	)

	// Extract
	extractStart := time.Now()
	_, spanEx := tracer.Start(ctx, "extract")
	counter := progress.NewCounter()
	results, final := p.extract(ctx, chunks, counter, expected)
	spanEx.SetAttributes(attribute.Int64("frames", final))
	spanEx.End()
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(extractStart).Seconds())

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %d of %d chunks returned", video.ErrInterrupted, len(results), len(chunks))
	}

	// Aggregate
	agg := timeline.NewAggregator(len(chunks))
	for _, r := range results {
		if err := agg.Add(r); err != nil {
			return nil, fmt.Errorf("aggregate results: %w", err)
		}
	}
	series := agg.Series()
	failed := agg.Failed()
	metrics.FramesExtractedTotal.Add(float64(len(series)))
	log.Info("colors extracted",
		zap.Int("samples", len(series)),
		zap.Int("failed_chunks", len(failed)),
	)

	// Downsample
	_, spanDs := tracer.Start(ctx, "downsample")
	row, err := timeline.Downsample(series, p.opts.Width)
	spanDs.End()
	if err != nil {
		if errors.Is(err, timeline.ErrDownsampleDegenerate) {
			return nil, fmt.Errorf("%w: %d of %d chunks failed", err, len(failed), len(chunks))
		}
		return nil, err
	}

	res := &Result{
		Metadata:     meta,
		Chunks:       chunks,
		FailedChunks: failed,
		SampleCount:  len(series),
		Progress:     final,
		Row:          row,
	}

	// Output
	if p.writer != nil {
		writeStart := time.Now()
		_, spanW := tracer.Start(ctx, "write")
		path, err := p.writer.Write(p.opts.VideoPath, row)
		spanW.End()
		if err != nil {
			return nil, err
		}
		metrics.StageDuration.WithLabelValues("write").Observe(time.Since(writeStart).Seconds())
		res.OutputPath = path
		log.Info("saved timeline image", zap.String("path", path))
	}

	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	log.Info("run complete",
		zap.Int("samples", res.SampleCount),
		zap.Int("columns", len(row)),
		zap.Duration("elapsed", time.Since(totalTimer)),
	)
	return res, nil
}

// extract runs one worker per chunk while the monitor reports progress, and
// returns the results in completion order along with the final count.
func (p *Pipeline) extract(ctx context.Context, chunks []video.Chunk, counter *progress.Counter, expected int64) ([]video.ChunkResult, int64) {
	opts := []video.FrameProcessorOption{
		video.WithChunkTimeout(p.opts.ChunkTimeout),
		video.WithFailureRecorder(metrics.ChunkRecorder{}),
	}
	if p.tracker != nil {
		opts = append(opts, video.WithTracker(p.tracker))
	}
	fp := video.NewFrameProcessor(p.decoder, counter, p.logger, opts...)

	batch := worker.Start(ctx, p.opts.Workers, chunks, func(c video.Chunk) video.ChunkResult {
		metrics.ActiveWorkers.Inc()
		defer metrics.ActiveWorkers.Dec()
		return fp.Extract(c)
	})

	var sink progress.Sink
	if p.sinkFor != nil {
		sink = p.sinkFor(expected)
	}
	final := progress.NewMonitor(counter, expected, p.opts.PollInterval, sink).Run(batch.Done())
	if f, ok := sink.(interface{ Finish() }); ok {
		f.Finish()
	}

	return batch.Wait(), final
}

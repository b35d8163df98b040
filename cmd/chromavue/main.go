package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chromavue/internal/config"
	"chromavue/internal/ffmpeg"
	"chromavue/internal/imageproc"
	"chromavue/internal/logger"
	"chromavue/internal/metrics"
	"chromavue/internal/pipeline"
	"chromavue/internal/progress"
	"chromavue/internal/shutdown"
	"chromavue/internal/timeline"
	"chromavue/internal/tracing"
	"chromavue/internal/video"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cli, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	cfg, err := config.Load(cli.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	cli.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	log, err := logger.New(cfg.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid log level %q: %v\n", cfg.LogLevel, err)
		return exitUsage
	}
	log = log.With(zap.String("run_id", uuid.NewString()))

	ctrl := shutdown.New(context.Background(), log)
	ctrl.OnCleanup(func() { _ = log.Sync() })
	stopWatch := ctrl.Watch(os.Interrupt, syscall.SIGTERM)
	defer stopWatch()
	defer ctrl.Cleanup()

	log.Info("starting",
		zap.String("video", cfg.VideoPath),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("workers", cfg.Workers),
	)

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctrl.Context(), cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			ctrl.OnCleanup(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(ctx)
			})
		}
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.StartMetricsServer(ctrl.Context(), cfg.MetricsAddr, log)
		ctrl.OnCleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
	}

	writer := &imageproc.Writer{
		Height:      cfg.Height,
		Format:      cfg.ImageFormat(),
		OutDir:      cfg.OutDir,
		PaletteJSON: cfg.Palette,
	}

	opts := []pipeline.Option{
		pipeline.WithWriter(writer),
		pipeline.WithTracker(ctrl),
	}
	if cfg.Progress {
		opts = append(opts, pipeline.WithProgress(func(total int64) progress.Sink {
			bar := progress.NewBar(stderr, total)
			ctrl.OnCleanup(bar.Finish)
			return bar
		}))
	}

	p := pipeline.New(ffmpeg.NewProber(), ffmpeg.NewDecoder(), log, pipeline.Options{
		VideoPath:    cfg.VideoPath,
		Width:        cfg.Width,
		Workers:      cfg.Workers,
		ChunkTimeout: cfg.ChunkTimeout,
		PollInterval: cfg.PollInterval,
		Window:       cfg.Window,
	}, opts...)

	res, err := p.Run(ctrl.Context())
	return exitCode(log, res, err)
}

func exitCode(log *zap.Logger, res *pipeline.Result, err error) int {
	switch {
	case err == nil:
		if n := len(res.FailedChunks); n > 0 {
			log.Warn("some chunks contributed no samples", zap.Int("failed_chunks", n))
		}
		return exitOK
	case errors.Is(err, video.ErrInterrupted):
		log.Warn("run interrupted, decoders terminated", zap.Error(err))
		return exitOK
	case errors.Is(err, timeline.ErrDownsampleDegenerate):
		log.Error("no colors could be extracted, nothing to render", zap.Error(err))
		return exitError
	default:
		log.Error("run failed", zap.Error(err))
		return exitError
	}
}

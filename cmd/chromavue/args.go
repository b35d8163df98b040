package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"chromavue/internal/config"
)

// cliArgs holds parsed flags. Only flags the user actually passed override
// the loaded configuration.
type cliArgs struct {
	configPath string
	videoPath  string
	set        map[string]bool

	width        int
	height       int
	workers      int
	format       string
	outDir       string
	start        string
	end          string
	chunkTimeout time.Duration
	palette      bool
	noProgress   bool
	logLevel     string
	metricsAddr  string
	otlpEndpoint string
}

func newFlagSet(a *cliArgs, out io.Writer) *flag.FlagSet {
	def := config.Default()

	fs := flag.NewFlagSet("chromavue", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: chromavue [flags] <video>\n\nGenerate a color timeline image from a video.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&a.configPath, "config", "", "YAML config file")
	fs.IntVar(&a.width, "width", def.Width, "Final image width in pixels")
	fs.IntVar(&a.height, "height", def.Height, "Final image height in pixels")
	fs.IntVar(&a.workers, "workers", def.Workers, "Number of parallel decoders")
	fs.StringVar(&a.format, "format", def.Format, "Output image format (png or jpeg)")
	fs.StringVar(&a.outDir, "out-dir", "", "Directory for the image (default: next to the video)")
	fs.StringVar(&a.start, "start", "", "Start time (seconds or HH:MM:SS)")
	fs.StringVar(&a.end, "end", "", "End time (seconds or HH:MM:SS)")
	fs.DurationVar(&a.chunkTimeout, "chunk-timeout", 0, "Kill a chunk's decoder after this long (0 disables)")
	fs.BoolVar(&a.palette, "palette", false, "Also write a JSON palette next to the image")
	fs.BoolVar(&a.noProgress, "no-progress", false, "Disable the progress bar")
	fs.StringVar(&a.logLevel, "log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&a.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP traces endpoint")
	return fs
}

// parseArgs accepts flags before and after the positional video path.
func parseArgs(args []string, out io.Writer) (cliArgs, error) {
	a := cliArgs{set: map[string]bool{}}
	fs := newFlagSet(&a, out)

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return cliArgs{}, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
	fs.Visit(func(f *flag.Flag) { a.set[f.Name] = true })

	switch len(positional) {
	case 0:
		// the video may come from the config file or environment
	case 1:
		a.videoPath = positional[0]
	default:
		return cliArgs{}, errors.New("expected a single video path")
	}
	return a, nil
}

// apply overlays explicitly passed flags onto cfg.
func (a cliArgs) apply(cfg *config.Config) {
	if a.videoPath != "" {
		cfg.VideoPath = a.videoPath
	}
	if a.set["width"] {
		cfg.Width = a.width
	}
	if a.set["height"] {
		cfg.Height = a.height
	}
	if a.set["workers"] {
		cfg.Workers = a.workers
	}
	if a.set["format"] {
		cfg.Format = a.format
	}
	if a.set["out-dir"] {
		cfg.OutDir = a.outDir
	}
	if a.set["start"] {
		cfg.Start = a.start
	}
	if a.set["end"] {
		cfg.End = a.end
	}
	if a.set["chunk-timeout"] {
		cfg.ChunkTimeout = a.chunkTimeout
	}
	if a.set["palette"] {
		cfg.Palette = a.palette
	}
	if a.set["no-progress"] {
		cfg.Progress = !a.noProgress
	}
	if a.set["log-level"] {
		cfg.LogLevel = a.logLevel
	}
	if a.set["metrics-addr"] {
		cfg.MetricsAddr = a.metricsAddr
	}
	if a.set["otlp-endpoint"] {
		cfg.OTLPEndpoint = a.otlpEndpoint
	}
}

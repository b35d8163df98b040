package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"chromavue/internal/ffmpeg"
	"chromavue/internal/imageproc"
	"chromavue/internal/video"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHROMAVUE_"

// Config is the effective run configuration. Precedence, lowest first:
// Default, YAML file, environment, command-line flags.
type Config struct {
	VideoPath    string        `yaml:"video"         env:"VIDEO"`
	Width        int           `yaml:"width"         env:"WIDTH"`
	Height       int           `yaml:"height"        env:"HEIGHT"`
	Workers      int           `yaml:"workers"       env:"WORKERS"`
	Format       string        `yaml:"format"        env:"FORMAT"`
	OutDir       string        `yaml:"out_dir"       env:"OUT_DIR"`
	Start        string        `yaml:"start"         env:"START"`
	End          string        `yaml:"end"           env:"END"`
	ChunkTimeout time.Duration `yaml:"chunk_timeout" env:"CHUNK_TIMEOUT"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	Palette      bool          `yaml:"palette"       env:"PALETTE"`
	Progress     bool          `yaml:"progress"      env:"PROGRESS"`
	LogLevel     string        `yaml:"log_level"     env:"LOG_LEVEL"`
	MetricsAddr  string        `yaml:"metrics_addr"  env:"METRICS_ADDR"`
	OTLPEndpoint string        `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Width:        3000,
		Height:       800,
		Workers:      runtime.NumCPU(),
		Format:       string(imageproc.FormatPNG),
		PollInterval: 200 * time.Millisecond,
		Progress:     true,
		LogLevel:     "info",
	}
}

// Load applies the YAML file at path (if non-empty) and then the environment
// on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read config file: %v", video.ErrInvalidConfiguration, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse config file %s: %v", video.ErrInvalidConfiguration, path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %v", video.ErrInvalidConfiguration, err)
	}

	return cfg, nil
}

// Validate checks everything that can be checked before probing.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.VideoPath) == "" {
		errs = append(errs, errors.New("video path is required"))
	} else if st, err := os.Stat(c.VideoPath); err != nil {
		errs = append(errs, fmt.Errorf("cannot access video file '%s': %v", c.VideoPath, err))
	} else if st.IsDir() {
		errs = append(errs, fmt.Errorf("video path '%s' is a directory", c.VideoPath))
	}

	if c.Width <= 0 {
		errs = append(errs, fmt.Errorf("width must be positive, got %d", c.Width))
	}
	if c.Height <= 0 {
		errs = append(errs, fmt.Errorf("height must be positive, got %d", c.Height))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if _, err := imageproc.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if c.ChunkTimeout < 0 {
		errs = append(errs, fmt.Errorf("chunk timeout must not be negative, got %s", c.ChunkTimeout))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval))
	}
	if _, _, err := c.window(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", video.ErrInvalidConfiguration, errors.Join(errs...))
	}
	return nil
}

// ImageFormat returns the parsed output format.
func (c Config) ImageFormat() imageproc.Format {
	f, err := imageproc.ParseFormat(c.Format)
	if err != nil {
		return imageproc.FormatPNG
	}
	return f
}

// window parses Start and End. A zero end means "until the end of the video".
func (c Config) window() (start, end float64, err error) {
	if c.Start != "" {
		if start, err = ffmpeg.ParseTimeString(c.Start); err != nil {
			return 0, 0, fmt.Errorf("start: %w", err)
		}
	}
	if c.End != "" {
		if end, err = ffmpeg.ParseTimeString(c.End); err != nil {
			return 0, 0, fmt.Errorf("end: %w", err)
		}
		if end <= start {
			return 0, 0, fmt.Errorf("end (%s) must be after start (%s)", c.End, c.Start)
		}
	}
	return start, end, nil
}

// Window resolves the time range to extract against the probed duration,
// returning its offset and length.
func (c Config) Window(duration float64) (offset, length float64, err error) {
	start, end, err := c.window()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", video.ErrInvalidConfiguration, err)
	}
	if end == 0 || end > duration {
		end = duration
	}
	if start >= end {
		return 0, 0, fmt.Errorf("%w: start %.3fs is beyond the end of the video (%.3fs)", video.ErrInvalidConfiguration, start, duration)
	}
	return start, end - start, nil
}

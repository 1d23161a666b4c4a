package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/setanarut/timericon"
	"github.com/setanarut/timericon/catalog"
	"github.com/setanarut/timericon/utils"
)

var (
	configPath  string
	spritePath  string
	outDir      string
	seriesName  string
	source      string
	mode        string
	strategy    string
	method      string
	format      string
	background  string
	frames      int
	amplitude   int
	delay       time.Duration
	seed        uint64
	workers     int
	maxSegments int
	preview     string
	verbose     bool
)

func main() {
	flag.StringVar(&configPath, "config", "", "TOML catalog config")
	flag.StringVar(&spritePath, "sprite", "", "base sprite (png or gif)")
	flag.StringVar(&outDir, "out", "", "output root directory")
	flag.StringVar(&seriesName, "series", "", "series name, used as file prefix and subdirectory")
	flag.StringVar(&source, "source", "", "sprite or blocks")
	flag.StringVar(&mode, "mode", "", "fade, dither or fill")
	flag.StringVar(&strategy, "strategy", "", "adaptive or fixed palette")
	flag.StringVar(&method, "method", "", "adaptive extraction: dominantcolor, kmeans or mediancut")
	flag.StringVar(&format, "format", "", "gif, apng or png")
	flag.StringVar(&background, "background", "", "opaque canvas color, e.g. #000000")
	flag.IntVar(&frames, "frames", 0, "frames per animation")
	flag.IntVar(&amplitude, "amplitude", 0, "bob amplitude in pixels (1-3)")
	flag.DurationVar(&delay, "delay", 0, "per-frame delay")
	flag.Uint64Var(&seed, "seed", 0, "random seed for fill mode")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "parallel units")
	flag.IntVar(&maxSegments, "max-segments", 0, "largest segment count")
	flag.StringVar(&preview, "preview", "", "write frames and palette of one unit, e.g. 5:0, then exit")
	flag.BoolVar(&verbose, "verbose", false, "debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}).Level(level).With().Timestamp().Logger()

	if err := run(logger); err != nil {
		logger.Error().Err(err).Msg("timericon")
		os.Exit(1)
	}
}

func run(logger zerolog.Logger) error {
	cfg := catalog.Config{}
	if configPath != "" {
		var err error
		if cfg, err = catalog.LoadConfig(configPath); err != nil {
			return err
		}
	}

	opt := cfg.Options(catalog.DefaultOptions())
	opt.Logger = logger
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if outDir != "" {
		opt.Output = outDir
	}
	if set["workers"] {
		opt.Workers = workers
	}
	if maxSegments > 0 {
		opt.MaxSegments = maxSegments
	}

	series, err := cfg.AllSeries()
	if err != nil {
		return err
	}
	if len(cfg.Series) == 0 && source != "" {
		src, err := catalog.ParseSource(source)
		if err != nil {
			return err
		}
		if src == catalog.SourceBlocks {
			series = []catalog.Series{catalog.DefaultBlocksSeries()}
		}
	}
	for i := range series {
		if err := override(&series[i], set); err != nil {
			return err
		}
	}

	if preview != "" {
		var u catalog.Unit
		if _, err := fmt.Sscanf(preview, "%d:%d", &u.Segments, &u.Track); err != nil {
			return errors.Wrapf(timericon.ErrInvalidOptions, "preview %q", preview)
		}
		for _, s := range series {
			if err := catalog.Preview(s, u, filepath.Join(opt.Output, "preview"), logger.With().Str("series", s.Name).Logger()); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	res, err := catalog.New(opt, series...).Run(ctx)
	fmt.Printf("%d succeeded, %d failed, %d files in %s\n", res.Succeeded, res.Failed, res.Files, time.Since(start).Round(time.Millisecond))
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return errors.Errorf("%d units failed", res.Failed)
	}
	return nil
}

// override applies command-line flags on top of a configured series.
func override(s *catalog.Series, set map[string]bool) error {
	var err error
	if source != "" {
		if s.Source, err = catalog.ParseSource(source); err != nil {
			return err
		}
	}
	if spritePath != "" {
		s.Sprite = spritePath
	}
	if seriesName != "" {
		s.Name = seriesName
		s.Dir = ""
	}
	if mode != "" {
		if s.Composer.Mode, err = timericon.ParseMode(mode); err != nil {
			return err
		}
	}
	if strategy != "" {
		if s.Encoder.Strategy, err = timericon.ParseStrategy(strategy); err != nil {
			return err
		}
	}
	if method != "" {
		if s.Encoder.Method, err = utils.ParsePaletteMethod(method); err != nil {
			return err
		}
	}
	if format != "" {
		if s.Format, err = catalog.ParseFormat(format); err != nil {
			return err
		}
	}
	if background != "" {
		if s.Composer.Background, err = catalog.ParseBackground(background); err != nil {
			return err
		}
	}
	if frames > 0 {
		s.Frames = frames
	}
	if amplitude > 0 {
		s.Composer.Amplitude = amplitude
	}
	if delay > 0 {
		s.FrameDelay = delay
	}
	if set["seed"] {
		s.Seed = seed
	}
	return nil
}

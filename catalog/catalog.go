// Package catalog renders every (segments, track) icon of one or more series
// and writes them under stable names.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/setanarut/timericon"
)

// Format is the container written for each unit.
type Format int

const (
	FormatGIF Format = iota
	FormatAPNG
	FormatPNG // first frame only, true alpha
)

func (f Format) String() string {
	switch f {
	case FormatAPNG:
		return "apng"
	case FormatPNG:
		return "png"
	default:
		return "gif"
	}
}

func (f Format) Ext() string {
	if f == FormatGIF {
		return "gif"
	}
	return "png"
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gif":
		return FormatGIF, nil
	case "apng":
		return FormatAPNG, nil
	case "png":
		return FormatPNG, nil
	}
	return FormatGIF, errors.Wrapf(timericon.ErrInvalidOptions, "unknown format %q", s)
}

// Source selects how a series draws its frames.
type Source int

const (
	// SourceSprite transforms a sprite with the composer.
	SourceSprite Source = iota
	// SourceBlocks draws one block per remaining segment.
	SourceBlocks
)

func (s Source) String() string {
	if s == SourceBlocks {
		return "blocks"
	}
	return "sprite"
}

func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sprite":
		return SourceSprite, nil
	case "blocks":
		return SourceBlocks, nil
	}
	return SourceSprite, errors.Wrapf(timericon.ErrInvalidOptions, "unknown source %q", s)
}

// Series is one family of icons drawn from a single sprite or block grid.
type Series struct {
	Name string
	// Output subdirectory. Defaults to Name.
	Dir    string
	Source Source
	// Unused by SourceBlocks.
	Sprite   string
	Format   Format
	Composer timericon.Options
	Blocks   timericon.BlockOptions
	Encoder  timericon.EncoderOptions
	Frames   int
	// Per-frame display time.
	FrameDelay time.Duration
	// image/gif semantics: 0 loops forever.
	LoopCount int
	// Mixed with (segments, track) to seed each unit's random source.
	Seed uint64
}

func DefaultSeries() Series {
	return Series{
		Name:       "ghost",
		Sprite:     "assets/timer/icons/ghost.png",
		Format:     FormatGIF,
		Composer:   timericon.DefaultOptions(),
		Blocks:     timericon.DefaultBlockOptions(),
		Encoder:    timericon.DefaultEncoderOptions(),
		Frames:     8,
		FrameDelay: 120 * time.Millisecond,
		Seed:       1,
	}
}

// DefaultBlocksSeries is the pulsing block grid: 12 frames at 80ms.
func DefaultBlocksSeries() Series {
	s := DefaultSeries()
	s.Name = "blocks"
	s.Source = SourceBlocks
	s.Sprite = ""
	s.Frames = 12
	s.FrameDelay = 80 * time.Millisecond
	return s
}

// loadSprite returns the series sprite, or nil for sources that draw without one.
func (s Series) loadSprite() (*image.RGBA, error) {
	if s.Source != SourceSprite {
		return nil, nil
	}
	return timericon.LoadSprite(s.Sprite, s.Composer.Canvas)
}

func (s Series) dir() string {
	if s.Dir != "" {
		return s.Dir
	}
	return s.Name
}

type Options struct {
	// Root directory; each series writes into Output/<series dir>.
	Output string
	// Segment counts 1..MaxSegments are rendered.
	MaxSegments int
	// Segment counts that are also written as <n>-segments-<track>.<ext>.
	Presets []int
	// Units rendered in parallel.
	Workers int
	Logger  zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		Output:      ".",
		MaxSegments: 20,
		Presets:     []int{5, 6, 8, 10, 12, 15},
		Workers:     runtime.NumCPU(),
		Logger:      zerolog.Nop(),
	}
}

// Unit is one icon of the matrix.
type Unit struct {
	Segments int
	Track    int
}

// Units enumerates segments 1..maxSegments and tracks 0..segments.
func Units(maxSegments int) []Unit {
	var out []Unit
	for s := 1; s <= maxSegments; s++ {
		for t := 0; t <= s; t++ {
			out = append(out, Unit{Segments: s, Track: t})
		}
	}
	return out
}

// Name is the primary file name of a unit: <series>-<segments>-<track>.<ext>.
func Name(series string, u Unit, ext string) string {
	return fmt.Sprintf("%s-%d-%d.%s", series, u.Segments, u.Track, ext)
}

// AliasName is the preset file name of a unit: <segments>-segments-<track>.<ext>.
func AliasName(u Unit, ext string) string {
	return fmt.Sprintf("%d-segments-%d.%s", u.Segments, u.Track, ext)
}

// UnitError tags a failure with the unit that produced it.
type UnitError struct {
	Series string
	Unit
	Err error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s-%d-%d: %v", e.Series, e.Segments, e.Track, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }

// Result counts units; Files includes preset aliases.
type Result struct {
	Succeeded int
	Failed    int
	Files     int
	Failures  []*UnitError
}

type Catalog struct {
	opt    Options
	series []Series
}

func New(opt Options, series ...Series) *Catalog {
	return &Catalog{opt: opt, series: series}
}

// Run renders every series. A failing unit is logged and counted and never
// stops its siblings. A missing or unreadable sprite aborts the run before any
// unit of that series starts.
func (c *Catalog) Run(ctx context.Context) (Result, error) {
	var res Result
	for _, s := range c.series {
		r, err := c.runSeries(ctx, s)
		res.Succeeded += r.Succeeded
		res.Failed += r.Failed
		res.Files += r.Files
		res.Failures = append(res.Failures, r.Failures...)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (c *Catalog) runSeries(ctx context.Context, s Series) (Result, error) {
	var res Result
	logger := c.opt.Logger.With().Str("series", s.Name).Logger()

	sprite, err := s.loadSprite()
	if err != nil {
		return res, err
	}
	dir := filepath.Join(c.opt.Output, s.dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, errors.Wrapf(err, "output directory %q", dir)
	}
	logger.Info().
		Str("source", s.Source.String()).
		Str("sprite", s.Sprite).
		Str("mode", s.Composer.Mode.String()).
		Str("format", s.Format.String()).
		Int("max_segments", c.opt.MaxSegments).
		Msg("series_start")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(max(1, c.opt.Workers))
	for _, u := range Units(c.opt.MaxSegments) {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			files, err := c.writeUnit(s, sprite, dir, u, logger)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				ue := &UnitError{Series: s.Name, Unit: u, Err: err}
				res.Failed++
				res.Failures = append(res.Failures, ue)
				logger.Error().Err(err).Int("segments", u.Segments).Int("track", u.Track).Msg("unit_failed")
				return nil
			}
			res.Succeeded++
			res.Files += files
			return nil
		})
	}
	g.Wait()

	slices.SortFunc(res.Failures, func(a, b *UnitError) int {
		if a.Segments != b.Segments {
			return a.Segments - b.Segments
		}
		return a.Track - b.Track
	})
	logger.Info().Int("succeeded", res.Succeeded).Int("failed", res.Failed).Int("files", res.Files).Msg("series_done")
	return res, ctx.Err()
}

// writeUnit renders u once and writes it under its primary name and, for
// preset segment counts, its alias. Either every name is written or none is.
// It returns the number of files written.
func (c *Catalog) writeUnit(s Series, sprite *image.RGBA, dir string, u Unit, logger zerolog.Logger) (int, error) {
	ulog := logger.With().Int("segments", u.Segments).Int("track", u.Track).Logger()
	data, err := Render(s, sprite, u, ulog)
	if err != nil {
		return 0, err
	}
	ext := s.Format.Ext()
	names := []string{Name(s.Name, u, ext)}
	if slices.Contains(c.opt.Presets, u.Segments) {
		names = append(names, AliasName(u, ext))
	}
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	if err := timericon.WriteBytesAll(paths, data); err != nil {
		return 0, errors.Wrapf(err, "write %v", names)
	}
	ulog.Debug().Strs("paths", paths).Int("bytes", len(data)).Msg("wrote")
	return len(names), nil
}

// UnitSource returns the random source for one unit of a series.
func UnitSource(seed uint64, u Unit) rand.Source {
	return rand.NewPCG(seed, uint64(u.Segments)<<32|uint64(u.Track))
}

// Frames composes the true-color frames of one unit. sprite is ignored by
// SourceBlocks.
func Frames(s Series, sprite *image.RGBA, u Unit) ([]*image.RGBA, error) {
	p := timericon.Progress(u.Segments, u.Track)
	if s.Source == SourceBlocks {
		return timericon.NewBlocks(s.Blocks).Generate(u.Segments, p, s.Frames)
	}
	return timericon.NewComposer(s.Composer, UnitSource(s.Seed, u)).Generate(sprite, p, s.Frames)
}

// Render produces the encoded artifact of one unit in memory.
func Render(s Series, sprite *image.RGBA, u Unit, logger zerolog.Logger) ([]byte, error) {
	frames, err := Frames(s, sprite, u)
	if err != nil {
		return nil, err
	}
	delays := timericon.UniformDelays(len(frames), s.FrameDelay)

	var buf bytes.Buffer
	switch s.Format {
	case FormatPNG:
		err = timericon.EncodePNG(&buf, frames[0])
	case FormatAPNG:
		a, aerr := timericon.AssembleAPNG(frames, delays, s.LoopCount)
		if aerr != nil {
			return nil, aerr
		}
		err = timericon.EncodeAPNG(&buf, a)
	default:
		eopt := s.Encoder
		eopt.Logger = logger
		enc, eerr := timericon.NewEncoder(eopt).Encode(frames)
		if eerr != nil {
			return nil, eerr
		}
		g, gerr := timericon.Assemble(enc.Frames, delays, s.LoopCount)
		if gerr != nil {
			return nil, gerr
		}
		err = timericon.EncodeGIF(&buf, g)
	}
	if err != nil {
		return nil, &timericon.EncodeError{Op: s.Format.String(), Cause: err}
	}
	return buf.Bytes(), nil
}

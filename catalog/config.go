package catalog

import (
	"image/color"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/setanarut/timericon"
	"github.com/setanarut/timericon/utils"
)

// Config is the file form of a catalog run.
//
//	output = "assets/icons/timer"
//	workers = 4
//	max_segments = 20
//	presets = [5, 6, 8, 10, 12, 15]
//
//	[[series]]
//	name = "ghost"
//	sprite = "assets/timer/icons/ghost.png"
//	mode = "fill"
//	strategy = "fixed"
//
//	[[series]]
//	source = "blocks"
type Config struct {
	Output      string         `toml:"output"`
	Workers     int            `toml:"workers"`
	MaxSegments int            `toml:"max_segments"`
	Presets     []int          `toml:"presets"`
	Series      []SeriesConfig `toml:"series"`
}

// SeriesConfig overrides DefaultSeries, or DefaultBlocksSeries when source is
// "blocks". Zero values keep the default.
type SeriesConfig struct {
	Name          string   `toml:"name"`
	Dir           string   `toml:"dir"`
	Source        string   `toml:"source"`
	Sprite        string   `toml:"sprite"`
	Format        string   `toml:"format"`
	Mode          string   `toml:"mode"`
	Strategy      string   `toml:"strategy"`
	Method        string   `toml:"method"`
	MaxColors     int      `toml:"max_colors"`
	Frames        int      `toml:"frames"`
	Amplitude     int      `toml:"amplitude"`
	MinVisibility *float64 `toml:"min_visibility"`
	DelayMS       int      `toml:"delay_ms"`
	Loop          int      `toml:"loop"`
	Seed          uint64   `toml:"seed"`
	// Hex color such as "#000000". Empty keeps the canvas transparent.
	Background string `toml:"background"`
}

func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config %q", path)
	}
	return cfg, nil
}

// Options overlays the file settings on base.
func (c Config) Options(base Options) Options {
	if c.Output != "" {
		base.Output = c.Output
	}
	if c.Workers > 0 {
		base.Workers = c.Workers
	}
	if c.MaxSegments > 0 {
		base.MaxSegments = c.MaxSegments
	}
	if c.Presets != nil {
		base.Presets = c.Presets
	}
	return base
}

// AllSeries resolves every [[series]] table. A file without series yields
// DefaultSeries.
func (c Config) AllSeries() ([]Series, error) {
	if len(c.Series) == 0 {
		return []Series{DefaultSeries()}, nil
	}
	out := make([]Series, 0, len(c.Series))
	for i, sc := range c.Series {
		s, err := sc.Series()
		if err != nil {
			return nil, errors.Wrapf(err, "series %d", i)
		}
		out = append(out, s)
	}
	return out, nil
}

func (sc SeriesConfig) Series() (Series, error) {
	src, err := ParseSource(sc.Source)
	if err != nil {
		return DefaultSeries(), err
	}
	s := DefaultSeries()
	if src == SourceBlocks {
		s = DefaultBlocksSeries()
	}
	if sc.Name != "" {
		s.Name = sc.Name
	}
	s.Dir = sc.Dir
	if sc.Sprite != "" {
		s.Sprite = sc.Sprite
	}
	if s.Format, err = ParseFormat(sc.Format); err != nil {
		return s, err
	}
	if sc.Mode != "" {
		if s.Composer.Mode, err = timericon.ParseMode(sc.Mode); err != nil {
			return s, err
		}
	}
	if s.Encoder.Strategy, err = timericon.ParseStrategy(sc.Strategy); err != nil {
		return s, err
	}
	if sc.Method != "" {
		if s.Encoder.Method, err = utils.ParsePaletteMethod(sc.Method); err != nil {
			return s, errors.Wrap(timericon.ErrInvalidOptions, err.Error())
		}
	}
	if sc.MaxColors > 0 {
		s.Encoder.MaxColors = sc.MaxColors
	}
	if sc.Frames > 0 {
		s.Frames = sc.Frames
	}
	if sc.Amplitude > 0 {
		s.Composer.Amplitude = sc.Amplitude
	}
	if sc.MinVisibility != nil {
		s.Composer.MinVisibility = *sc.MinVisibility
	}
	if sc.DelayMS > 0 {
		s.FrameDelay = time.Duration(sc.DelayMS) * time.Millisecond
	}
	s.LoopCount = sc.Loop
	if sc.Seed != 0 {
		s.Seed = sc.Seed
	}
	if sc.Background != "" {
		bg, err := ParseBackground(sc.Background)
		if err != nil {
			return s, err
		}
		s.Composer.Background = bg
	}
	return s, nil
}

// ParseBackground reads a "#rgb" or "#rrggbb" color as an opaque background.
func ParseBackground(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, errors.Wrapf(timericon.ErrInvalidOptions, "background %q", hex)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

package catalog

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/setanarut/timericon"
	"github.com/setanarut/timericon/utils"
)

// SavePaletteSwatch writes pal as a row of 16px tiles.
func SavePaletteSwatch(pal color.Palette, path string) error {
	if err := utils.SavePalette(pal, 16, path); err != nil {
		return errors.Wrapf(err, "swatch %q", path)
	}
	return nil
}

// Preview writes the true-color frames of one unit as PNGs and, for GIF
// series, the quantized palette as a swatch, all under dir.
func Preview(s Series, u Unit, dir string, logger zerolog.Logger) error {
	sprite, err := s.loadSprite()
	if err != nil {
		return err
	}
	frames, err := Frames(s, sprite, u)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	prefix := fmt.Sprintf("%s-%d-%d", s.Name, u.Segments, u.Track)
	if err := utils.SaveFrames(frames, dir, prefix); err != nil {
		return errors.Wrap(err, "save frames")
	}
	logger.Info().Str("dir", dir).Int("frames", len(frames)).Msg("preview frames")
	if s.Format != FormatGIF {
		return nil
	}

	eopt := s.Encoder
	eopt.Logger = logger
	enc, err := timericon.NewEncoder(eopt).Encode(frames)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, prefix+"-palette.png")
	if err := SavePaletteSwatch(enc.Palette, path); err != nil {
		return err
	}
	logger.Info().Str("path", path).Int("colors", len(enc.Palette)).Int("warnings", len(enc.Warnings)).Msg("preview palette")
	return nil
}

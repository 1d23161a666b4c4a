// Package timericon renders small animated countdown icons from a sprite.
package timericon

import (
	"image"
	"image/color"
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// Icon canvas dimensions.
const (
	CanvasWidth  = 16
	CanvasHeight = 16
)

// CanvasSize returns the icon canvas as a point.
func CanvasSize() image.Point { return image.Pt(CanvasWidth, CanvasHeight) }

// Mode selects the progress-driven transform applied to the sprite.
type Mode int

const (
	ModeFade Mode = iota
	ModeDither
	ModeFill
)

func (m Mode) String() string {
	switch m {
	case ModeDither:
		return "dither"
	case ModeFill:
		return "fill"
	default:
		return "fade"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fade":
		return ModeFade, nil
	case "dither":
		return ModeDither, nil
	case "fill":
		return ModeFill, nil
	}
	return ModeFade, errors.Wrapf(ErrInvalidOptions, "unknown mode %q", s)
}

type Options struct {
	// Transform applied to the sprite for a given progress.
	Mode Mode
	// Vertical bob in pixels. Must be 1-3 so the sprite stays on the 16px canvas.
	Amplitude int
	// Visibility floor for fade and dither while any progress remains.
	// Visibility is MinVisibility + p*(1-MinVisibility).
	// 0.15-0.2 keeps the sprite perceptible on the last track before it disappears.
	MinVisibility float64
	// Canvas fill behind the sprite. Zero value is transparent.
	Background color.RGBA
	// Canvas dimensions.
	Canvas image.Point

	// Fill mode recolors near-white pixels bottom-up with these colors (dark, medium, light).
	FillPalette [3]color.RGBA
	// Pick weights over FillPalette for the top, middle and bottom thirds of the sprite.
	FillBands [3][3]float64
	// Random tie-break added to the row key, in rows. Below 1.0 ties only
	// shuffle within a row; larger values let neighbouring rows interleave.
	FillJitter float64
	// A pixel is fill-eligible when R, G and B exceed FillMinChannel and alpha exceeds FillAlphaMin.
	FillMinChannel uint8
	FillAlphaMin   uint8
}

func DefaultOptions() Options {
	return Options{
		Mode:          ModeFade,
		Amplitude:     2,
		MinVisibility: 0.2,
		Canvas:        CanvasSize(),
		FillPalette: [3]color.RGBA{
			{R: 239, G: 126, B: 19, A: 255}, // #ef7e13
			{R: 241, G: 137, B: 37, A: 255}, // #f18925
			{R: 234, G: 146, B: 57, A: 255}, // #ea9239
		},
		FillBands: [3][3]float64{
			{0.12, 0.28, 0.60}, // top: mostly light
			{1, 1, 1},
			{0.60, 0.28, 0.12}, // bottom: mostly dark
		},
		FillJitter:     0.3,
		FillMinChannel: 200,
		FillAlphaMin:   10,
	}
}

func (o Options) validate(frameCount int) error {
	if frameCount < 1 {
		return errors.Wrapf(ErrInvalidOptions, "frame count %d", frameCount)
	}
	if o.Amplitude < 1 || o.Amplitude > 3 {
		return errors.Wrapf(ErrInvalidOptions, "amplitude %d outside [1,3]", o.Amplitude)
	}
	if o.MinVisibility < 0 || o.MinVisibility > 1 {
		return errors.Wrapf(ErrInvalidOptions, "min visibility %v outside [0,1]", o.MinVisibility)
	}
	if o.Canvas.X <= 0 || o.Canvas.Y <= 0 {
		return errors.Wrapf(ErrInvalidOptions, "canvas %v", o.Canvas)
	}
	if o.Mode == ModeFill {
		for i, band := range o.FillBands {
			sum := 0.0
			for _, w := range band {
				if w < 0 {
					return errors.Wrapf(ErrInvalidOptions, "negative fill weight in band %d", i)
				}
				sum += w
			}
			if sum <= 0 {
				return errors.Wrapf(ErrInvalidOptions, "empty fill band %d", i)
			}
		}
	}
	return nil
}

// Composer turns a sprite and a progress fraction into true-color frames.
type Composer struct {
	opt Options
	rng *rand.Rand
}

// NewComposer returns a Composer. src drives the fill tie-break and color
// picks; nil gives a fixed-seed source.
func NewComposer(opt Options, src rand.Source) *Composer {
	if src == nil {
		src = rand.NewPCG(0, 0)
	}
	return &Composer{opt: opt, rng: rand.New(src)}
}

func (c *Composer) Options() Options { return c.opt }

// Generate returns frameCount canvas-sized frames of sprite bobbing under the
// configured transform. progress <= 0 or NaN yields a single transparent frame.
// sprite is read only.
func (c *Composer) Generate(sprite *image.RGBA, progress float64, frameCount int) ([]*image.RGBA, error) {
	if err := c.opt.validate(frameCount); err != nil {
		return nil, err
	}
	canvas := image.Rectangle{Max: c.opt.Canvas}
	if !(progress > 0) {
		return []*image.RGBA{image.NewRGBA(canvas)}, nil
	}
	progress = min(progress, 1)

	box := contentBounds(sprite)
	src := c.transform(sprite, progress)

	motion := Motion{Amplitude: c.opt.Amplitude, Frames: frameCount}
	frames := make([]*image.RGBA, frameCount)
	for i := range frameCount {
		dst := image.NewRGBA(canvas)
		if c.opt.Background.A != 0 {
			draw.Draw(dst, canvas, image.NewUniform(c.opt.Background), image.Point{}, draw.Src)
		}
		if !box.Empty() {
			at := placement(canvas, box, motion.Offset(i))
			draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(box.Size())}, src, box.Min, draw.Over)
		}
		frames[i] = dst
	}
	return frames, nil
}

// transform copies sprite and applies the mode's visibility or fill rule.
func (c *Composer) transform(sprite *image.RGBA, progress float64) *image.NRGBA {
	b := sprite.Bounds()
	out := image.NewNRGBA(b)
	draw.Draw(out, b, sprite, b.Min, draw.Src)
	switch c.opt.Mode {
	case ModeDither:
		ditherFade(out, visibility(progress, c.opt.MinVisibility))
	case ModeFill:
		fill(out, progress, c.opt, c.rng)
	default:
		alphaFade(out, visibility(progress, c.opt.MinVisibility))
	}
	return out
}

// contentBounds is the smallest rectangle holding every non-transparent pixel.
func contentBounds(m *image.RGBA) image.Rectangle {
	b := m.Bounds()
	r := image.Rectangle{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if m.Pix[m.PixOffset(x, y)+3] == 0 {
				continue
			}
			r = r.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return r
}

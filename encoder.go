package timericon

import (
	"cmp"
	"image"
	"image/color"
	"math"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/setanarut/timericon/utils"
)

// TransparentIndex is the palette index reserved for transparency in every
// frame of every clip.
const TransparentIndex = 0

// Strategy selects how the clip palette is built.
type Strategy int

const (
	StrategyAdaptive Strategy = iota
	StrategyFixed
)

func (s Strategy) String() string {
	if s == StrategyFixed {
		return "fixed"
	}
	return "adaptive"
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "adaptive":
		return StrategyAdaptive, nil
	case "fixed":
		return StrategyFixed, nil
	}
	return StrategyAdaptive, errors.Wrapf(ErrInvalidOptions, "unknown palette strategy %q", s)
}

// EncoderOptions configures quantization.
//
// GIF palettes carry 1-bit transparency only: pixels below AlphaCutoff become
// transparent and every other pixel is flattened onto Matte. Partial alpha
// therefore shows up as darker (or lighter) color, never as translucency, and
// colors that straddle a fixed-table band boundary can land in a neighbouring
// bucket. Both losses are reported through QualityWarning, not corrected.
type EncoderOptions struct {
	Strategy Strategy
	// Adaptive table size including the transparent entry, at most 256.
	MaxColors int
	// Extraction method used when the clip has more distinct colors than MaxColors-1.
	Method utils.PaletteMethod
	// Fixed strategy table.
	Table Table
	// Pixels with alpha below this are transparent. Values below 1 are raised to 1.
	AlphaCutoff uint8
	// Color behind partially transparent pixels.
	Matte color.RGBA
	// Lab distance above which a pixel counts as collapsed into the wrong color.
	WarnDistance float64
	Logger       zerolog.Logger
}

func DefaultEncoderOptions() EncoderOptions {
	return EncoderOptions{
		Strategy:     StrategyAdaptive,
		MaxColors:    64,
		Method:       utils.PaletteMethodDominantColor,
		Table:        GhostTable(),
		AlphaCutoff:  10,
		Matte:        color.RGBA{A: 255},
		WarnDistance: 0.12,
		Logger:       zerolog.Nop(),
	}
}

// Encoded is a clip quantized onto one shared palette.
type Encoded struct {
	Frames   []*image.Paletted
	Palette  color.Palette
	Warnings []*QualityWarning
}

type Encoder struct {
	opt EncoderOptions
}

func NewEncoder(opt EncoderOptions) *Encoder {
	return &Encoder{opt: opt}
}

// Encode quantizes frames onto a single palette whose entry TransparentIndex
// is transparent.
func (e *Encoder) Encode(frames []*image.RGBA) (*Encoded, error) {
	if len(frames) == 0 {
		return nil, errors.Wrap(ErrEncode, "no frames to quantize")
	}
	flat := make([]*image.NRGBA, len(frames))
	for i, f := range frames {
		flat[i] = e.flatten(f)
	}

	var (
		pal    color.Palette
		lookup func(color.NRGBA) (int, float64)
	)
	switch e.opt.Strategy {
	case StrategyFixed:
		if err := e.opt.Table.validate(); err != nil {
			return nil, err
		}
		pal = e.opt.Table.Palette()
		lookup = e.opt.Table.Lookup
	default:
		if e.opt.MaxColors < 2 {
			return nil, errors.Wrapf(ErrInvalidOptions, "max colors %d", e.opt.MaxColors)
		}
		pal = e.adaptivePalette(flat)
		lookup = nearestLookup(pal)
	}

	out := &Encoded{Palette: pal, Frames: make([]*image.Paletted, len(flat))}
	cache := map[color.NRGBA]struct {
		idx  int
		dist float64
	}{}
	for i, m := range flat {
		b := m.Bounds()
		pm := image.NewPaletted(b, pal)
		var dists []float64
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := m.NRGBAAt(x, y)
				if c.A == 0 {
					pm.SetColorIndex(x, y, TransparentIndex)
					continue
				}
				hit, ok := cache[c]
				if !ok {
					hit.idx, hit.dist = lookup(c)
					cache[c] = hit
				}
				pm.SetColorIndex(x, y, uint8(hit.idx))
				dists = append(dists, hit.dist)
			}
		}
		out.Frames[i] = pm
		if w := e.assess(i, dists); w != nil {
			out.Warnings = append(out.Warnings, w)
		}
	}
	e.opt.Logger.Debug().
		Str("strategy", e.opt.Strategy.String()).
		Int("frames", len(out.Frames)).
		Int("colors", len(pal)).
		Msg("quantized clip")
	return out, nil
}

// Quantize encodes a single frame as a one-frame clip.
func (e *Encoder) Quantize(frame *image.RGBA) (*image.Paletted, error) {
	enc, err := e.Encode([]*image.RGBA{frame})
	if err != nil {
		return nil, err
	}
	return enc.Frames[0], nil
}

// flatten resolves every pixel to either fully transparent or opaque over the matte.
func (e *Encoder) flatten(m *image.RGBA) *image.NRGBA {
	cutoff := max(e.opt.AlphaCutoff, 1)
	matte := e.opt.Matte
	b := m.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			s := m.Pix[m.PixOffset(x, y):]
			a := s[3]
			if a < cutoff {
				continue
			}
			// Source pixels are premultiplied: out = src + matte*(1-a).
			inv := uint32(255 - a)
			d := out.Pix[out.PixOffset(x, y):]
			d[0] = uint8(min(255, uint32(s[0])+(uint32(matte.R)*inv+127)/255))
			d[1] = uint8(min(255, uint32(s[1])+(uint32(matte.G)*inv+127)/255))
			d[2] = uint8(min(255, uint32(s[2])+(uint32(matte.B)*inv+127)/255))
			d[3] = 255
		}
	}
	return out
}

// adaptivePalette returns the exact clip colors by occurrence when they fit,
// otherwise an extracted table.
func (e *Encoder) adaptivePalette(frames []*image.NRGBA) color.Palette {
	limit := min(e.opt.MaxColors, 256) - 1
	counts := map[color.NRGBA]int{}
	for _, m := range frames {
		for i := 0; i < len(m.Pix); i += 4 {
			if m.Pix[i+3] == 0 {
				continue
			}
			counts[color.NRGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: 255}]++
		}
	}

	pal := color.Palette{color.NRGBA{}}
	if len(counts) <= limit {
		keys := make([]color.NRGBA, 0, len(counts))
		for c := range counts {
			keys = append(keys, c)
		}
		slices.SortFunc(keys, func(a, b color.NRGBA) int {
			if n := cmp.Compare(counts[b], counts[a]); n != 0 {
				return n
			}
			return cmp.Compare(packRGB(a), packRGB(b))
		})
		for _, c := range keys {
			pal = append(pal, c)
		}
		return pal
	}

	extracted := utils.ExtractPalette(contactSheet(frames), limit, e.opt.Method, e.opt.Logger)
	utils.SortPaletteByBrightness(extracted)
	seen := map[color.NRGBA]bool{}
	for _, col := range extracted {
		r, g, b := col.Clamped().RGB255()
		c := color.NRGBA{R: r, G: g, B: b, A: 255}
		if seen[c] {
			continue
		}
		seen[c] = true
		pal = append(pal, c)
	}
	e.opt.Logger.Debug().
		Str("method", e.opt.Method.String()).
		Int("distinct", len(counts)).
		Int("colors", len(pal)).
		Msg("extracted adaptive palette")
	return pal
}

func (e *Encoder) assess(frame int, dists []float64) *QualityWarning {
	if len(dists) == 0 {
		return nil
	}
	worst := floats.Max(dists)
	if worst <= e.opt.WarnDistance {
		return nil
	}
	mean, std := stat.MeanStdDev(dists, nil)
	collapsed := 0
	for _, d := range dists {
		if d > e.opt.WarnDistance {
			collapsed++
		}
	}
	w := &QualityWarning{Frame: frame, Collapsed: collapsed, MeanError: mean, MaxError: worst}
	e.opt.Logger.Warn().
		Int("frame", frame).
		Int("collapsed", collapsed).
		Float64("mean", mean).
		Float64("stddev", std).
		Float64("max", worst).
		Msg("quantization quality")
	return w
}

// nearestLookup maps a color to the closest opaque palette entry in Lab.
func nearestLookup(pal color.Palette) func(color.NRGBA) (int, float64) {
	labs := make([]colorful.Color, len(pal))
	for i, c := range pal {
		labs[i] = toColorful(color.NRGBAModel.Convert(c).(color.NRGBA))
	}
	return func(c color.NRGBA) (int, float64) {
		col := toColorful(c)
		best, bestD := TransparentIndex, math.MaxFloat64
		for i := range labs {
			if i == TransparentIndex {
				continue
			}
			if d := col.DistanceLab(labs[i]); d < bestD {
				best, bestD = i, d
			}
		}
		return best, bestD
	}
}

// contactSheet lays frames side by side so extraction sees the whole clip.
func contactSheet(frames []*image.NRGBA) *image.NRGBA {
	w, h := 0, 0
	for _, m := range frames {
		w += m.Bounds().Dx()
		h = max(h, m.Bounds().Dy())
	}
	sheet := image.NewNRGBA(image.Rect(0, 0, w, h))
	x := 0
	for _, m := range frames {
		b := m.Bounds()
		for y := 0; y < b.Dy(); y++ {
			copy(sheet.Pix[sheet.PixOffset(x, y):sheet.PixOffset(x+b.Dx(), y)], m.Pix[m.PixOffset(b.Min.X, b.Min.Y+y):m.PixOffset(b.Max.X, b.Min.Y+y)])
		}
		x += b.Dx()
	}
	return sheet
}

func packRGB(c color.NRGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

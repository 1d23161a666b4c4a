package timericon

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// BlockOptions configures the block grid renderer.
type BlockOptions struct {
	// Block colors, cycled by block index.
	Shades []color.RGBA
	// Pixels between neighbouring blocks.
	Gap    int
	Canvas image.Point
	// The last lit block's alpha follows PulseBase + PulseDepth*sin(2*pi*i/frames).
	PulseBase  float64
	PulseDepth float64
}

func DefaultBlockOptions() BlockOptions {
	return BlockOptions{
		Shades: []color.RGBA{
			{0x87, 0xCE, 0xEB, 0xFF},
			{0x6B, 0xB6, 0xFF, 0xFF},
			{0x4A, 0x90, 0xE2, 0xFF},
			{0x2E, 0x7C, 0xD6, 0xFF},
			{0x1E, 0x88, 0xE5, 0xFF},
			{0x15, 0x65, 0xC0, 0xFF},
			{0x0D, 0x47, 0xA1, 0xFF},
			{0x08, 0x30, 0x6B, 0xFF},
			{0x5D, 0xAD, 0xE2, 0xFF},
			{0x34, 0x98, 0xDB, 0xFF},
			{0x28, 0x74, 0xA6, 0xFF},
			{0x1A, 0x54, 0x90, 0xFF},
		},
		Gap:        1,
		Canvas:     CanvasSize(),
		PulseBase:  180,
		PulseDepth: 75,
	}
}

// BlockLayout returns the grid used for a segment count.
func BlockLayout(segments int) (cols, rows int) {
	ceilDiv := func(a, b int) int { return (a + b - 1) / b }
	switch {
	case segments <= 4:
		return max(segments, 1), 1
	case segments <= 8:
		return 4, ceilDiv(segments, 4)
	case segments <= 12:
		return 4, 3
	case segments <= 16:
		return 4, 4
	case segments <= 25:
		return 5, ceilDiv(segments, 5)
	default:
		return 6, ceilDiv(segments, 6)
	}
}

// ActiveBlocks is the number of lit blocks at progress, in [0, segments].
func ActiveBlocks(segments int, progress float64) int {
	if !(progress > 0) || segments < 1 {
		return 0
	}
	// Absorb float error so 5*(1-2/5) lights 3 blocks, not 4.
	n := int(math.Ceil(float64(segments)*min(progress, 1) - 1e-9))
	return clampInt(n, 0, segments)
}

// Blocks draws remaining time as a grid of colored blocks, one per segment.
// The last lit block pulses.
type Blocks struct {
	opt BlockOptions
}

func NewBlocks(opt BlockOptions) *Blocks {
	return &Blocks{opt: opt}
}

// Generate renders frameCount frames for the given progress. With no lit
// block the result is a single transparent frame.
func (b *Blocks) Generate(segments int, progress float64, frameCount int) ([]*image.RGBA, error) {
	if frameCount < 1 {
		return nil, errors.Wrapf(ErrInvalidOptions, "frame count %d", frameCount)
	}
	if segments < 1 {
		return nil, errors.Wrapf(ErrInvalidOptions, "segments %d", segments)
	}
	if len(b.opt.Shades) == 0 {
		return nil, errors.Wrap(ErrInvalidOptions, "no block shades")
	}
	canvas := image.Rectangle{Max: b.opt.Canvas}
	if canvas.Empty() {
		return nil, errors.Wrapf(ErrInvalidOptions, "canvas %v", b.opt.Canvas)
	}
	cells, err := b.cells(segments)
	if err != nil {
		return nil, err
	}

	active := ActiveBlocks(segments, progress)
	if active == 0 {
		return []*image.RGBA{image.NewRGBA(canvas)}, nil
	}
	frames := make([]*image.RGBA, frameCount)
	for i := range frameCount {
		dst := image.NewRGBA(canvas)
		for j := range active {
			c := b.opt.Shades[j%len(b.opt.Shades)]
			nc := color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
			if j == active-1 {
				nc.A = b.PulseAlpha(i, frameCount)
			}
			draw.Draw(dst, cells[j], image.NewUniform(nc), image.Point{}, draw.Src)
		}
		frames[i] = dst
	}
	return frames, nil
}

// PulseAlpha is the alpha of the last lit block in frame i of n.
func (b *Blocks) PulseAlpha(i, n int) uint8 {
	a := int(b.opt.PulseBase + b.opt.PulseDepth*math.Sin(2*math.Pi*float64(i)/float64(n)))
	return uint8(clampInt(a, 0, 255))
}

// cells returns the rectangle of every block, row-major, centered on the canvas.
func (b *Blocks) cells(segments int) ([]image.Rectangle, error) {
	cols, rows := BlockLayout(segments)
	size := b.opt.Canvas
	gap := max(b.opt.Gap, 0)
	bw := (size.X - (cols-1)*gap) / cols
	bh := (size.Y - (rows-1)*gap) / rows
	if bw < 1 || bh < 1 {
		return nil, errors.Wrapf(ErrInvalidOptions, "%d segments leave no room for blocks on %v", segments, size)
	}
	start := image.Pt(
		(size.X-(cols*bw+(cols-1)*gap))/2,
		(size.Y-(rows*bh+(rows-1)*gap))/2,
	)
	out := make([]image.Rectangle, 0, segments)
	for r := 0; r < rows && len(out) < segments; r++ {
		for c := 0; c < cols && len(out) < segments; c++ {
			at := start.Add(image.Pt(c*(bw+gap), r*(bh+gap)))
			out = append(out, image.Rectangle{Min: at, Max: at.Add(image.Pt(bw, bh))})
		}
	}
	return out, nil
}

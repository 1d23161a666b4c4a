package timericon

import (
	"image"
	"math/rand/v2"
	"slices"
)

// bayer4 is the 4x4 ordered-dither threshold matrix, values 0-15.
var bayer4 = [4][4]uint8{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

// visibility maps progress (0,1] onto [floor,1].
func visibility(progress, floor float64) float64 {
	return floor + progress*(1-floor)
}

// alphaFade scales the alpha of every pixel by v, leaving color alone.
func alphaFade(m *image.NRGBA, v float64) {
	if v >= 1 {
		return
	}
	for i := 3; i < len(m.Pix); i += 4 {
		if a := m.Pix[i]; a != 0 {
			m.Pix[i] = uint8(float64(a) * v)
		}
	}
}

// ditherFade hides pixels whose Bayer threshold exceeds v. Visible pixels keep
// their full alpha, so the fade survives a 1-bit transparency container.
func ditherFade(m *image.NRGBA, v float64) {
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := m.PixOffset(x, y)
			if m.Pix[off+3] == 0 {
				continue
			}
			threshold := float64(bayer4[(y-b.Min.Y)&3][(x-b.Min.X)&3]) / 16
			if v < threshold {
				m.Pix[off], m.Pix[off+1], m.Pix[off+2], m.Pix[off+3] = 0, 0, 0, 0
			}
		}
	}
}

type fillCandidate struct {
	x, y int
	key  float64
}

// fillEligible lists the near-white opaque pixels of m in row-major order.
func fillEligible(m *image.NRGBA, opt Options) []image.Point {
	b := m.Bounds()
	var out []image.Point
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p := m.Pix[m.PixOffset(x, y):]
			if p[3] > opt.FillAlphaMin && p[0] > opt.FillMinChannel && p[1] > opt.FillMinChannel && p[2] > opt.FillMinChannel {
				out = append(out, image.Pt(x, y))
			}
		}
	}
	return out
}

// fill recolors floor(len(eligible)*progress) eligible pixels, lowest rows
// first, picking each color by the pixel's vertical third.
func fill(m *image.NRGBA, progress float64, opt Options, rng *rand.Rand) int {
	eligible := fillEligible(m, opt)
	n := int(float64(len(eligible)) * progress)
	if n <= 0 {
		return 0
	}

	cands := make([]fillCandidate, len(eligible))
	for i, p := range eligible {
		cands[i] = fillCandidate{x: p.X, y: p.Y, key: -float64(p.Y) + rng.Float64()*opt.FillJitter}
	}
	slices.SortStableFunc(cands, func(a, b fillCandidate) int {
		if a.key < b.key {
			return -1
		}
		if a.key > b.key {
			return 1
		}
		return 0
	})

	b := m.Bounds()
	h := b.Dy()
	for _, c := range cands[:n] {
		band := clampInt((c.y-b.Min.Y)*3/h, 0, 2)
		col := opt.FillPalette[pickWeighted(rng, opt.FillBands[band][:])]
		off := m.PixOffset(c.x, c.y)
		m.Pix[off], m.Pix[off+1], m.Pix[off+2] = col.R, col.G, col.B
	}
	return n
}

func pickWeighted(rng *rand.Rand, weights []float64) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	r := rng.Float64() * sum
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}

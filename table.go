package timericon

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Bucket is one entry of a fixed color table.
type Bucket struct {
	Name  string
	Color color.NRGBA
	// Band buckets claim any color whose channels all lie in [Min, Max].
	Band     bool
	Min, Max [3]uint8
	// Ramp buckets are the fallback for colors no band claims.
	Ramp bool
}

func (b Bucket) contains(c color.NRGBA) bool {
	return c.R >= b.Min[0] && c.R <= b.Max[0] &&
		c.G >= b.Min[1] && c.G <= b.Max[1] &&
		c.B >= b.Min[2] && c.B <= b.Max[2]
}

// Table is an ordered fixed palette. Entry TransparentIndex is the
// transparent color; bands are tested in order and the first match wins.
type Table []Bucket

func band(name string, c color.NRGBA, lo, hi [3]uint8) Bucket {
	return Bucket{Name: name, Color: c, Band: true, Min: lo, Max: hi}
}

func ramp(name string, c color.NRGBA) Bucket {
	return Bucket{Name: name, Color: c, Ramp: true}
}

func opaque(r, g, b uint8) color.NRGBA { return color.NRGBA{R: r, G: g, B: b, A: 255} }

// GhostTable is the default fixed table: white body, near-white shades for
// antialiasing, light-blue and peach details, a gray ramp and the three fill
// oranges.
func GhostTable() Table {
	return Table{
		{Name: "transparent"},
		band("white", opaque(255, 255, 255), [3]uint8{251, 251, 251}, [3]uint8{255, 255, 255}),
		ramp("near-white-250", opaque(250, 250, 250)),
		ramp("near-white-245", opaque(245, 245, 245)),
		ramp("near-white-240", opaque(240, 240, 240)),
		ramp("near-white-235", opaque(235, 235, 235)),
		band("light-blue", opaque(185, 229, 245), [3]uint8{181, 221, 241}, [3]uint8{215, 255, 255}),
		ramp("blue-220", opaque(170, 220, 240)),
		ramp("blue-210", opaque(155, 210, 235)),
		ramp("blue-200", opaque(140, 200, 230)),
		ramp("blue-190", opaque(125, 190, 225)),
		band("peach", opaque(251, 191, 169), [3]uint8{241, 181, 161}, [3]uint8{255, 225, 200}),
		band("dark-gray", opaque(50, 49, 49), [3]uint8{0, 0, 0}, [3]uint8{59, 59, 59}),
		ramp("gray-100", opaque(100, 100, 100)),
		ramp("gray-150", opaque(150, 150, 150)),
		ramp("gray-200", opaque(200, 200, 200)),
		band("orange-dark", opaque(239, 126, 19), [3]uint8{228, 110, 0}, [3]uint8{250, 131, 30}),
		band("orange-medium", opaque(241, 137, 37), [3]uint8{228, 132, 31}, [3]uint8{250, 141, 47}),
		band("orange-light", opaque(234, 146, 57), [3]uint8{222, 142, 48}, [3]uint8{250, 165, 75}),
	}
}

func (t Table) validate() error {
	if len(t) < 2 || len(t) > 256 {
		return errors.Wrapf(ErrInvalidOptions, "fixed table has %d entries", len(t))
	}
	if t[TransparentIndex].Color.A != 0 {
		return errors.Wrap(ErrInvalidOptions, "fixed table entry 0 must be transparent")
	}
	for i, b := range t[1:] {
		if b.Color.A == 0 {
			return errors.Wrapf(ErrInvalidOptions, "fixed table entry %d (%s) is transparent", i+1, b.Name)
		}
	}
	return nil
}

// Palette returns the table colors in index order.
func (t Table) Palette() color.Palette {
	p := make(color.Palette, len(t))
	for i, b := range t {
		p[i] = b.Color
	}
	return p
}

// Lookup returns the bucket index for an opaque color and the Lab distance
// between the color and the bucket it landed in.
func (t Table) Lookup(c color.NRGBA) (int, float64) {
	col := toColorful(c)
	for i, b := range t {
		if i == TransparentIndex || !b.Band {
			continue
		}
		if b.contains(c) {
			return i, col.DistanceLab(toColorful(b.Color))
		}
	}
	best, bestD := -1, math.MaxFloat64
	for pass := 0; pass < 2 && best < 0; pass++ {
		for i, b := range t {
			if i == TransparentIndex || (pass == 0 && !b.Ramp) {
				continue
			}
			if d := col.DistanceLab(toColorful(b.Color)); d < bestD {
				best, bestD = i, d
			}
		}
	}
	return best, bestD
}

func toColorful(c color.NRGBA) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

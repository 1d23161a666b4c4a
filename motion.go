package timericon

import (
	"image"
	"math"
)

// Motion is a vertical bob: one full sine period spread over Frames frames.
type Motion struct {
	Amplitude int
	Frames    int
}

// Offset returns round(Amplitude * sin(2*pi*i/Frames)). It is periodic in i
// with period Frames.
func (m Motion) Offset(i int) int {
	if m.Frames <= 0 || m.Amplitude == 0 {
		return 0
	}
	i %= m.Frames
	if i < 0 {
		i += m.Frames
	}
	return int(math.Round(float64(m.Amplitude) * math.Sin(2*math.Pi*float64(i)/float64(m.Frames))))
}

// Offsets returns the offsets for one full period.
func (m Motion) Offsets() []int {
	out := make([]int, max(m.Frames, 0))
	for i := range out {
		out[i] = m.Offset(i)
	}
	return out
}

// placement returns where the content box r of a sprite lands on the canvas
// for a vertical offset dy. The box is centered, shifted, then clamped so it
// never leaves the canvas.
func placement(canvas image.Rectangle, r image.Rectangle, dy int) image.Point {
	x := canvas.Min.X + (canvas.Dx()-r.Dx())/2
	y := canvas.Min.Y + (canvas.Dy()-r.Dy())/2 + dy
	x = clampInt(x, canvas.Min.X, max(canvas.Min.X, canvas.Max.X-r.Dx()))
	y = clampInt(y, canvas.Min.Y, max(canvas.Min.Y, canvas.Max.Y-r.Dy()))
	return image.Pt(x, y)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package timericon

import (
	"image"
	"testing"
)

func TestMotionPeriodic(t *testing.T) {
	for _, n := range []int{1, 4, 8, 12} {
		for a := 1; a <= 3; a++ {
			m := Motion{Amplitude: a, Frames: n}
			for i := -n; i < 3*n; i++ {
				if m.Offset(i) != m.Offset(i+n) {
					t.Fatalf("%+v: Offset(%d)=%d, Offset(%d)=%d", m, i, m.Offset(i), i+n, m.Offset(i+n))
				}
				if o := m.Offset(i); o < -a || o > a {
					t.Fatalf("%+v: Offset(%d)=%d exceeds amplitude", m, i, o)
				}
			}
		}
	}
}

func TestMotionEightFrames(t *testing.T) {
	got := Motion{Amplitude: 2, Frames: 8}.Offsets()
	want := []int{0, 1, 2, 1, 0, -1, -2, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Offsets() = %v, want %v", got, want)
		}
	}
}

func TestPlacementStaysOnCanvas(t *testing.T) {
	canvas := image.Rect(0, 0, 16, 16)
	tests := []struct {
		box  image.Rectangle
		dy   int
		want image.Point
	}{
		{image.Rect(0, 0, 10, 10), 0, image.Pt(3, 3)},
		{image.Rect(0, 0, 10, 10), 2, image.Pt(3, 5)},
		{image.Rect(0, 0, 10, 10), -3, image.Pt(3, 0)},
		{image.Rect(0, 0, 16, 16), 2, image.Pt(0, 0)},
		{image.Rect(0, 0, 12, 14), 3, image.Pt(2, 2)},
	}
	for _, tt := range tests {
		got := placement(canvas, tt.box, tt.dy)
		if got != tt.want {
			t.Errorf("placement(%v, %d) = %v, want %v", tt.box, tt.dy, got, tt.want)
		}
		if r := (image.Rectangle{Min: got, Max: got.Add(tt.box.Size())}); !r.In(canvas) {
			t.Errorf("placement(%v, %d) = %v leaves the canvas", tt.box, tt.dy, r)
		}
	}
}

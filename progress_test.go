package timericon

import "testing"

func TestProgressRange(t *testing.T) {
	for segments := 1; segments <= 20; segments++ {
		prev := 2.0
		for track := 0; track <= segments; track++ {
			p := Progress(segments, track)
			if p < 0 || p > 1 {
				t.Fatalf("Progress(%d, %d) = %v, outside [0,1]", segments, track, p)
			}
			if p > prev {
				t.Fatalf("Progress(%d, %d) = %v increased from %v", segments, track, p, prev)
			}
			prev = p
		}
		if p := Progress(segments, 0); p != 1 {
			t.Errorf("Progress(%d, 0) = %v, want 1", segments, p)
		}
		if p := Progress(segments, segments); p != 0 {
			t.Errorf("Progress(%d, %d) = %v, want 0", segments, segments, p)
		}
	}
}

func TestProgressEdges(t *testing.T) {
	tests := []struct {
		state ProgressState
		want  float64
	}{
		{ProgressState{Segments: 0, Track: 0}, 0},
		{ProgressState{Segments: -3, Track: 1}, 0},
		{ProgressState{Segments: 4, Track: 2}, 0.5},
		{ProgressState{Segments: 4, Track: -1}, 1},
		{ProgressState{Segments: 4, Track: 9}, 0},
	}
	for _, tt := range tests {
		if got := tt.state.Fraction(); got != tt.want {
			t.Errorf("%+v.Fraction() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

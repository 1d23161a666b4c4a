package timericon

// ProgressState is one step of a segmented countdown: Track counts elapsed
// segments out of Segments.
type ProgressState struct {
	Segments int
	Track    int
}

// Fraction returns 1 - Track/Segments, which is 1.0 at the first track and 0.0
// at the final one. Segments <= 0 is treated as fully elapsed.
func (s ProgressState) Fraction() float64 {
	if s.Segments <= 0 {
		return 0
	}
	track := max(0, min(s.Segments, s.Track))
	return 1 - float64(track)/float64(s.Segments)
}

// Progress is shorthand for ProgressState{segments, track}.Fraction().
func Progress(segments, track int) float64 {
	return ProgressState{Segments: segments, Track: track}.Fraction()
}

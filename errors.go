package timericon

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAssetNotFound is returned when the base sprite does not resolve.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrEncode is returned when a frame sequence cannot form one clip.
	ErrEncode = errors.New("encode error")
	// ErrInvalidOptions is returned for out-of-range composer or encoder settings.
	ErrInvalidOptions = errors.New("invalid options")
)

// EncodeError is a codec failure. It matches both ErrEncode and its cause
// under errors.Is and errors.As.
type EncodeError struct {
	Op    string
	Cause error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrEncode, e.Op, e.Cause)
}

func (e *EncodeError) Unwrap() []error { return []error{ErrEncode, e.Cause} }

// QualityWarning reports colors that landed far from their table entry.
// It is informational and never returned as a failure.
type QualityWarning struct {
	Frame     int
	Collapsed int // pixels whose Lab distance exceeded the warn threshold
	MeanError float64
	MaxError  float64
}

func (w *QualityWarning) Error() string {
	return fmt.Sprintf("quantization quality: frame %d: %d pixels collapsed (mean %.3f, max %.3f)",
		w.Frame, w.Collapsed, w.MeanError, w.MaxError)
}

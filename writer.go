package timericon

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kettek/apng"
	"github.com/pkg/errors"
)

// UniformDelays returns n copies of d.
func UniformDelays(n int, d time.Duration) []time.Duration {
	out := make([]time.Duration, max(n, 0))
	for i := range out {
		out[i] = d
	}
	return out
}

// Assemble builds a GIF from indexed frames. Every frame is disposed to the
// background before the next one is drawn, so frames are independent
// pictures rather than diffs. loopCount follows image/gif: 0 loops forever.
func Assemble(frames []*image.Paletted, delays []time.Duration, loopCount int) (*gif.GIF, error) {
	if len(frames) == 0 {
		return nil, errors.Wrap(ErrEncode, "no frames")
	}
	if len(delays) != len(frames) {
		return nil, errors.Wrapf(ErrEncode, "%d delays for %d frames", len(delays), len(frames))
	}
	bounds := frames[0].Bounds()
	pal := frames[0].Palette
	if len(pal) == 0 || len(pal) > 256 {
		return nil, errors.Wrapf(ErrEncode, "palette has %d entries", len(pal))
	}
	if _, _, _, a := pal[TransparentIndex].RGBA(); a != 0 {
		return nil, errors.Wrap(ErrEncode, "palette entry 0 is not transparent")
	}
	for i, f := range frames[1:] {
		if f.Bounds() != bounds {
			return nil, errors.Wrapf(ErrEncode, "frame %d is %v, frame 0 is %v", i+1, f.Bounds(), bounds)
		}
		if !samePalette(f.Palette, pal) {
			return nil, errors.Wrapf(ErrEncode, "frame %d palette differs from frame 0", i+1)
		}
	}

	g := &gif.GIF{
		Image:     frames,
		Delay:     make([]int, len(frames)),
		Disposal:  make([]byte, len(frames)),
		LoopCount: loopCount,
		Config: image.Config{
			ColorModel: pal,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		},
		BackgroundIndex: TransparentIndex,
	}
	for i, d := range delays {
		g.Delay[i] = max(1, int((d+5*time.Millisecond)/(10*time.Millisecond)))
		g.Disposal[i] = gif.DisposalBackground
	}
	return g, nil
}

// AssembleAPNG builds a true-alpha animated PNG from RGBA frames.
func AssembleAPNG(frames []*image.RGBA, delays []time.Duration, loopCount int) (apng.APNG, error) {
	if len(frames) == 0 {
		return apng.APNG{}, errors.Wrap(ErrEncode, "no frames")
	}
	if len(delays) != len(frames) {
		return apng.APNG{}, errors.Wrapf(ErrEncode, "%d delays for %d frames", len(delays), len(frames))
	}
	bounds := frames[0].Bounds()
	a := apng.APNG{LoopCount: apngPlays(loopCount)}
	for i, f := range frames {
		if f.Bounds() != bounds {
			return apng.APNG{}, errors.Wrapf(ErrEncode, "frame %d is %v, frame 0 is %v", i, f.Bounds(), bounds)
		}
		a.Frames = append(a.Frames, apng.Frame{
			Image:            f,
			DelayNumerator:   uint16(min(delays[i].Milliseconds(), 65535)),
			DelayDenominator: 1000,
			DisposeOp:        apng.DISPOSE_OP_BACKGROUND,
		})
	}
	return a, nil
}

// apngPlays converts an image/gif loop count to an APNG play count (0 = forever).
func apngPlays(loopCount int) uint {
	switch {
	case loopCount == 0:
		return 0
	case loopCount < 0:
		return 1
	default:
		return uint(loopCount) + 1
	}
}

func EncodeGIF(w io.Writer, g *gif.GIF) error {
	return gif.EncodeAll(w, g)
}

func EncodeAPNG(w io.Writer, a apng.APNG) error {
	return apng.Encode(w, a)
}

// EncodePNG writes a single true-color frame.
func EncodePNG(w io.Writer, m image.Image) error {
	return png.Encode(w, m)
}

// WriteFile runs encode into a temporary file beside path and renames it into
// place. Nothing is left at path when encode or the rename fails.
func WriteFile(path string, encode func(io.Writer) error) error {
	tmp, err := createTemp(path, encode)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// WriteBytes writes data to path atomically.
func WriteBytes(path string, data []byte) error {
	return WriteFile(path, copyBytes(data))
}

// WriteBytesAll writes data to every path, or to none of them. All temporary
// files are written before the first rename; if a later rename fails, the
// paths already renamed are removed again.
func WriteBytesAll(paths []string, data []byte) (err error) {
	temps := make([]string, 0, len(paths))
	defer func() {
		if err != nil {
			for _, tmp := range temps {
				os.Remove(tmp)
			}
		}
	}()
	for _, path := range paths {
		tmp, err := createTemp(path, copyBytes(data))
		if err != nil {
			return err
		}
		temps = append(temps, tmp)
	}
	for i, path := range paths {
		if err := os.Rename(temps[i], path); err != nil {
			for _, done := range paths[:i] {
				os.Remove(done)
			}
			return err
		}
	}
	return nil
}

// createTemp writes encode's output to a new file in path's directory and
// returns its name. The file is removed on failure.
func createTemp(path string, encode func(io.Writer) error) (name string, err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if err = encode(f); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func copyBytes(data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	}
}

func samePalette(p, q color.Palette) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		r0, g0, b0, a0 := p[i].RGBA()
		r1, g1, b1, a1 := q[i].RGBA()
		if r0 != r1 || g0 != g1 || b0 != b1 || a0 != a1 {
			return false
		}
	}
	return true
}

package timericon

import (
	"image"
	_ "image/gif"
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/setanarut/timericon/utils"
)

// LoadSprite decodes the sprite at path into an RGBA image anchored at the
// origin. Sprites larger than canvas are shrunk with nearest-neighbour
// sampling, keeping the aspect ratio. Callers must treat the result as
// read only.
func LoadSprite(path string, canvas image.Point) (*image.RGBA, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrAssetNotFound, "sprite %q", path)
		}
		return nil, errors.Wrapf(err, "sprite %q", path)
	}
	img, err := utils.ReadImage(path)
	if err != nil {
		return nil, errors.Wrapf(err, "decode sprite %q", path)
	}
	return NormalizeSprite(img, canvas), nil
}

// NormalizeSprite converts img to RGBA at the origin, downscaling it to fit
// canvas when needed.
func NormalizeSprite(img image.Image, canvas image.Point) *image.RGBA {
	sb := img.Bounds()
	w, h := sb.Dx(), sb.Dy()
	if canvas.X > 0 && canvas.Y > 0 && (w > canvas.X || h > canvas.Y) {
		scale := min(float64(canvas.X)/float64(w), float64(canvas.Y)/float64(h))
		dst := image.NewRGBA(image.Rect(0, 0, max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, sb, draw.Src, nil)
		return dst
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, sb.Min, draw.Src)
	return dst
}

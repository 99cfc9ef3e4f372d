package renderer

import (
	"fmt"
	"image"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/pthm-cable/fallingobjects/assets"
)

// Mask rasterizes a sprite into a w×h coverage mask. The sprite's own fill
// colors are discarded: particles are tinted with their gradient color.
func Mask(sprite *assets.Sprite, w, h int) (*image.Alpha, error) {
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("rasterizing %s: invalid size %dx%d", sprite.URL, w, h)
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(sprite.Markup), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("rasterizing %s: %w", sprite.URL, err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	mask := image.NewAlpha(rgba.Bounds())
	for i := 0; i < len(mask.Pix); i++ {
		mask.Pix[i] = rgba.Pix[i*4+3]
	}
	return mask, nil
}

// WhiteImage turns a mask into a white RGBA image carrying the mask as alpha,
// ready to be tinted by a GPU texture draw.
func WhiteImage(mask *image.Alpha) *image.RGBA {
	img := image.NewRGBA(mask.Bounds())
	for i, a := range mask.Pix {
		img.Pix[i*4+0] = 255
		img.Pix[i*4+1] = 255
		img.Pix[i*4+2] = 255
		img.Pix[i*4+3] = a
	}
	return img
}

// Coverage averages a mask over a cols×rows grid, returning values in [0,1]
// indexed [row][col].
func Coverage(mask *image.Alpha, cols, rows int) [][]float64 {
	b := mask.Bounds()
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		out[r] = make([]float64, cols)
		y0 := b.Min.Y + r*b.Dy()/rows
		y1 := b.Min.Y + (r+1)*b.Dy()/rows
		for c := 0; c < cols; c++ {
			x0 := b.Min.X + c*b.Dx()/cols
			x1 := b.Min.X + (c+1)*b.Dx()/cols
			var sum, n float64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += float64(mask.AlphaAt(x, y).A)
					n++
				}
			}
			if n > 0 {
				out[r][c] = sum / (n * 255)
			}
		}
	}
	return out
}

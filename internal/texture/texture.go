// Package texture decodes image files into tightly packed RGBA8 pixels.
package texture

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Decode reads a PNG, JPEG or BMP image and converts it to RGBA with the
// origin at the top left and a stride of exactly four bytes per pixel.
func Decode(r io.Reader) (*image.RGBA, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode texture")
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, errors.Newf("%s texture has no pixels", format)
	}

	return ToRGBA(src), nil
}

// ToRGBA returns img unchanged when it is already tightly packed RGBA at the
// origin, and a converted copy otherwise.
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) && rgba.Stride == bounds.Dx()*4 {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

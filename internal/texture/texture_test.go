package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	return img
}

func TestDecode(t *testing.T) {
	src := gradient(4, 3)

	encoders := map[string]func(*bytes.Buffer) error{
		"png": func(buf *bytes.Buffer) error { return png.Encode(buf, src) },
		"bmp": func(buf *bytes.Buffer) error { return bmp.Encode(buf, src) },
	}
	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := encode(&buf); err != nil {
				t.Fatal(err)
			}

			rgba, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode: %+v", err)
			}
			if rgba.Bounds() != image.Rect(0, 0, 4, 3) || rgba.Stride != 16 || len(rgba.Pix) != 48 {
				t.Fatalf("bounds %v stride %d len %d", rgba.Bounds(), rgba.Stride, len(rgba.Pix))
			}
			if got, want := rgba.RGBAAt(3, 2), (color.RGBA{R: 180, G: 120, B: 128, A: 255}); got != want {
				t.Errorf("pixel (3,2) = %v, want %v", got, want)
			}
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("Decode accepted garbage")
	}
}

func TestToRGBA(t *testing.T) {
	packed := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if ToRGBA(packed) != packed {
		t.Error("tightly packed RGBA was copied")
	}

	sub := image.NewRGBA(image.Rect(0, 0, 4, 4)).SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)
	sub.SetRGBA(1, 1, color.RGBA{R: 9, A: 255})
	converted := ToRGBA(sub)
	if converted == sub {
		t.Fatal("sub-image with a wide stride was returned as is")
	}
	if converted.Bounds() != image.Rect(0, 0, 2, 2) || converted.Stride != 8 {
		t.Errorf("bounds %v stride %d", converted.Bounds(), converted.Stride)
	}
	if got := converted.RGBAAt(0, 0); got.R != 9 {
		t.Errorf("origin pixel = %v, want the sub-image's top left", got)
	}

	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.SetGray(0, 0, color.Gray{Y: 200})
	if got := ToRGBA(gray).RGBAAt(0, 0); got != (color.RGBA{200, 200, 200, 255}) {
		t.Errorf("gray converted to %v", got)
	}
}

// Package testutil provides synthetic test images for the scanner packages.
package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
)

// QRImage generates a square QR code image encoding payload.
func QRImage(t *testing.T, payload string, size int) image.Image {
	t.Helper()
	writer := qrcode.NewQRCodeWriter()
	matrix, err := writer.Encode(payload, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	require.NoError(t, err, "failed to encode test QR image")
	return matrix
}

// BlankImage returns a uniformly filled image with no symbol in it.
func BlankImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// Inverted returns a color-inverted copy of src, for polarity tests.
func Inverted(src image.Image) *image.RGBA {
	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := src.At(x, y).RGBA()
			out.Set(x-b.Min.X, y-b.Min.Y, color.RGBA{
				R: uint8(255 - r>>8),
				G: uint8(255 - g>>8),
				B: uint8(255 - bl>>8),
				A: uint8(a >> 8),
			})
		}
	}
	return out
}

// Embedded returns a canvas of the given dimensions with src drawn centered
// on a white background, so region-of-interest paths have margins to crop.
func Embedded(src image.Image, width, height int) *image.RGBA {
	out := BlankImage(width, height, color.White)
	sb := src.Bounds()
	x := (width - sb.Dx()) / 2
	y := (height - sb.Dy()) / 2
	draw.Draw(out, image.Rect(x, y, x+sb.Dx(), y+sb.Dy()), src, sb.Min, draw.Src)
	return out
}

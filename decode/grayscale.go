package decode

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/qrscan/internal/mempool"
)

// toGray converts an image to 8-bit grayscale using the given channel
// weights. Integer approximation interprets the weights as x/256 fixed-point
// coefficients; otherwise they are applied as floating-point factors. The
// pixel buffer is pooled; callers release it via releaseGray.
func toGray(img image.Image, w GrayscaleWeights) *image.Gray {
	b := img.Bounds()
	gray := &image.Gray{
		Pix:    mempool.GetBytes(b.Dx() * b.Dy()),
		Stride: b.Dx(),
		Rect:   image.Rect(0, 0, b.Dx(), b.Dy()),
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			r := uint32(r16 >> 8)
			g := uint32(g16 >> 8)
			bl := uint32(b16 >> 8)
			var v uint32
			if w.UseIntegerApproximation {
				v = (r*uint32(w.Red) + g*uint32(w.Green) + bl*uint32(w.Blue) + 128) >> 8
			} else {
				v = uint32(float64(r)*w.Red + float64(g)*w.Green + float64(bl)*w.Blue + 0.5)
			}
			if v > 255 {
				v = 255
			}
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: uint8(v)})
		}
	}
	return gray
}

// invertGray returns a pooled copy with every luminance value flipped.
func invertGray(src *image.Gray) *image.Gray {
	out := &image.Gray{
		Pix:    mempool.GetBytes(len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	for i, v := range src.Pix {
		out.Pix[i] = 255 - v
	}
	return out
}

// releaseGray returns a grayscale image's pixel buffer to the pool. The image
// must not be used afterwards.
func releaseGray(g *image.Gray) {
	if g != nil {
		mempool.PutBytes(g.Pix)
	}
}

// Package frame samples video frames into a reusable pixel buffer for the
// decode backends.
package frame

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// CenteredROI returns the default scan region for a source of the given
// intrinsic dimensions: a centered square covering two thirds of the smaller
// dimension. The result is empty when the dimensions are not yet known.
func CenteredROI(width, height int) image.Rectangle {
	if width <= 0 || height <= 0 {
		return image.Rectangle{}
	}
	smaller := width
	if height < smaller {
		smaller = height
	}
	side := int(math.Round(float64(smaller) * 2.0 / 3.0))
	x := (width - side) / 2
	y := (height - side) / 2
	return image.Rect(x, y, x+side, y+side)
}

// Canvas is a reusable pixel buffer frames are sampled into. Reusing the
// backing buffer avoids a per-frame allocation while the region of interest
// keeps its size.
type Canvas struct {
	buf *image.RGBA
}

// NewCanvas returns a square canvas with the given initial side length.
func NewCanvas(size int) *Canvas {
	if size <= 0 {
		size = 400
	}
	return &Canvas{buf: image.NewRGBA(image.Rect(0, 0, size, size))}
}

// Size returns the current buffer dimensions.
func (c *Canvas) Size() (width, height int) {
	b := c.buf.Bounds()
	return b.Dx(), b.Dy()
}

// Draw copies the region of interest of src into the canvas, scaled to the
// canvas dimensions with nearest-neighbor sampling so no interpolation blur
// degrades symbol edges. An empty roi means the whole source. Unless
// fixedSize is set, the canvas is resized to the region's dimensions first,
// reallocating only when they actually changed.
func (c *Canvas) Draw(src image.Image, roi image.Rectangle, fixedSize bool) *image.RGBA {
	if roi.Empty() {
		roi = src.Bounds()
	}
	if !fixedSize {
		c.setSize(roi.Dx(), roi.Dy())
	}
	xdraw.NearestNeighbor.Scale(c.buf, c.buf.Bounds(), src, roi, xdraw.Src, nil)
	return c.buf
}

func (c *Canvas) setSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	b := c.buf.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return
	}
	c.buf = image.NewRGBA(image.Rect(0, 0, width, height))
}

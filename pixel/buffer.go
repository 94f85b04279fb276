// Package pixel provides the host-side RGBA byte buffer used to move pixel
// data between GPU textures and the rest of the runtime: read-back results,
// StaticImageMedia uploads, and sink-exported images all pass through it.
package pixel

import (
	"errors"
	"fmt"
	stdimage "image"
)

// ErrOutOfBounds is returned by pixel accessors given coordinates outside
// the buffer's dimensions.
var ErrOutOfBounds = errors.New("pixel: coordinates out of bounds")

// Buffer is a rectangular RGBA8 pixel buffer in row-major order, 4 bytes
// per pixel, matching the pipeline's pixel read-back format.
type Buffer struct {
	width  int
	height int
	data   []byte
}

// NewBuffer allocates a zeroed buffer of the given dimensions.
func NewBuffer(width, height int) *Buffer {
	return &Buffer{width: width, height: height, data: make([]byte, width*height*4)}
}

// FromBytes wraps an existing row-major RGBA8 buffer without copying.
// It panics if len(data) != width*height*4, since a mismatched buffer
// indicates a caller-side bug, not a runtime error condition.
func FromBytes(width, height int, data []byte) *Buffer {
	if len(data) != width*height*4 {
		panic(fmt.Sprintf("pixel: buffer length %d does not match %dx%d RGBA8", len(data), width, height))
	}
	return &Buffer{width: width, height: height, data: data}
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.height }

// Bytes returns the underlying row-major RGBA8 storage.
func (b *Buffer) Bytes() []byte { return b.data }

// At returns the RGBA8 quadruplet at (x, y).
func (b *Buffer) At(x, y int) (r, g, bl, a uint8, err error) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return 0, 0, 0, 0, fmt.Errorf("%w: (%d,%d) in %dx%d buffer", ErrOutOfBounds, x, y, b.width, b.height)
	}
	i := (y*b.width + x) * 4
	return b.data[i], b.data[i+1], b.data[i+2], b.data[i+3], nil
}

// Set writes the RGBA8 quadruplet at (x, y).
func (b *Buffer) Set(x, y int, r, g, bl, a uint8) error {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return fmt.Errorf("%w: (%d,%d) in %dx%d buffer", ErrOutOfBounds, x, y, b.width, b.height)
	}
	i := (y*b.width + x) * 4
	b.data[i], b.data[i+1], b.data[i+2], b.data[i+3] = r, g, bl, a
	return nil
}

// ToImage converts the buffer to a standard library image.RGBA, primarily
// for sink export and CLI PNG output.
func (b *Buffer) ToImage() *stdimage.RGBA {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, b.width, b.height))
	copy(img.Pix, b.data)
	return img
}

// FromImage copies a standard library image into a new row-major RGBA8 buffer.
func FromImage(img stdimage.Image) *Buffer {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	buf := NewBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			_ = buf.Set(x, y, uint8(r>>8), uint8(g>>8), uint8(bl>>8), uint8(a>>8))
		}
	}
	return buf
}

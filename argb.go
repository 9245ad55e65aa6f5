package tiff2png

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
)

var _ = fmt.Print

// ARGB is an in-memory image of packed pixels, the raster a whole-image
// decode produces. At returns color.NRGBA values.
type ARGB struct {
	// Pix holds the image's pixels, each a host byte order uint32 of the form
	// 0xAARRGGBB with straight alpha. The pixel at (x, y) starts at
	// Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*4].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// UnpackARGB splits a packed pixel into its channels.
func UnpackARGB(px uint32) color.NRGBA {
	return color.NRGBA{R: uint8(px >> 16), G: uint8(px >> 8), B: uint8(px), A: uint8(px >> 24)}
}

func (p *ARGB) ColorModel() color.Model { return color.NRGBAModel }

func (p *ARGB) Bounds() image.Rectangle { return p.Rect }

func (p *ARGB) At(x, y int) color.Color {
	return p.NRGBAAt(x, y)
}

func (p *ARGB) NRGBAAt(x, y int) color.NRGBA {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.NRGBA{}
	}
	return UnpackARGB(p.PixelAt(x, y))
}

// PixelAt returns the packed value of the pixel at (x, y), which must be
// inside the bounds.
func (p *ARGB) PixelAt(x, y int) uint32 {
	i := p.PixOffset(x, y)
	return binary.NativeEndian.Uint32(p.Pix[i : i+4 : i+4])
}

// PixOffset returns the index of the first element of Pix that corresponds to
// the pixel at (x, y).
func (p *ARGB) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

// Row returns the packed pixels of row y, sharing memory with p.
func (p *ARGB) Row(y int) []byte {
	i := p.PixOffset(p.Rect.Min.X, y)
	return p.Pix[i : i+4*p.Rect.Dx() : i+4*p.Rect.Dx()]
}

// NewARGBWithContiguousPixels wraps p, which must hold exactly width*height
// packed pixels, as an ARGB image.
func NewARGBWithContiguousPixels(p []byte, width, height int) (*ARGB, error) {
	const bpp = 4
	if expected := bpp * width * height; expected != len(p) {
		return nil, fmt.Errorf("the image width and height dont match the size of the specified pixel data: width=%d height=%d sz=%d != %d", width, height, len(p), expected)
	}
	return &ARGB{
		Pix:    p,
		Stride: bpp * width,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}

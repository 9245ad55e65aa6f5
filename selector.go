package tiff2png

import (
	"fmt"

	"github.com/kovidgoyal/tiff2png/types"
)

var _ = fmt.Print

// SelectLayout maps the color model and sample count of an image to the PNG
// pixel layout it is written as. The bit depth is carried over unchanged.
func SelectLayout(d types.Descriptor) (types.Layout, error) {
	l := types.Layout{BitDepth: int(d.BitsPerSample)}
	switch d.ColorModel {
	case types.Gray:
		if d.SamplesPerPixel == 2 {
			l.ColorType = types.ColorGrayAlpha
		} else {
			l.ColorType = types.ColorGray
		}
	case types.RGB:
		if d.SamplesPerPixel == 4 {
			l.ColorType = types.ColorRGBA
		} else {
			l.ColorType = types.ColorRGB
		}
	default:
		return types.Layout{}, failf(UnsupportedColorModel, "%s", d.ColorModel)
	}
	return l, nil
}

// CheckLayout reports whether scanlines of d can be written in layout l
// without reinterpreting samples: the depth must be 8 or 16 and a source
// scanline must be exactly as long as a target row.
func CheckLayout(d types.Descriptor, l types.Layout) error {
	if l.BitDepth != 8 && l.BitDepth != 16 {
		return failf(UnsupportedBitDepth, "%d bits per sample", d.BitsPerSample)
	}
	if want := l.RowBytes(int(d.Width)); d.ScanlineSize() != want {
		return failf(UnsupportedColorModel, "%s with %d samples per pixel cannot be written as %s", d.ColorModel, d.SamplesPerPixel, l)
	}
	return nil
}

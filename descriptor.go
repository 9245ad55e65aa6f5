package tiff2png

import (
	"fmt"

	"github.com/kovidgoyal/tiff2png/types"
)

var _ = fmt.Print

// FieldSource gives access to the tag values of a decoded TIFF directory.
// Field must apply the TIFF defaults for tags that have one and report
// false for absent tags that do not.
type FieldSource interface {
	Field(tag types.Tag) (uint32, bool)
}

// ReadDescriptor queries the properties of the image that decide its output
// layout. It fails with MissingProperty naming the first absent field.
func ReadDescriptor(src FieldSource) (d types.Descriptor, err error) {
	if src == nil {
		return d, failf(InvalidInput, "no image")
	}
	var cm uint32
	for _, f := range []struct {
		tag types.Tag
		dst *uint32
	}{
		{types.ImageWidth, &d.Width},
		{types.ImageLength, &d.Height},
		{types.BitsPerSample, &d.BitsPerSample},
		{types.SamplesPerPixel, &d.SamplesPerPixel},
		{types.PhotometricInterpretation, &cm},
	} {
		v, ok := src.Field(f.tag)
		if !ok {
			return types.Descriptor{}, failf(MissingProperty, "%s", f.tag)
		}
		*f.dst = v
	}
	d.ColorModel = types.ColorModel(cm)
	if d.Width == 0 || d.Height == 0 {
		return types.Descriptor{}, failf(MissingProperty, "image has no pixels: %dx%d", d.Width, d.Height)
	}
	return d, nil
}

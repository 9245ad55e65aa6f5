/*
Package tiff2png converts TIFF images to PNG one scanline at a time.

The output pixel layout is chosen from the photometric interpretation and
sample count of the source: grayscale sources become PNG gray or gray+alpha,
RGB sources become PNG RGB or RGBA, and the bit depth (8 or 16) is preserved.
Rows are read from the TIFF strips, converted to big-endian and handed to a
streaming PNG encoder, so memory use is bounded by a few scanlines.

An alternative WholeRaster strategy decodes the full image into packed ARGB
pixels first and always writes 8-bit RGBA. It honours the TIFF orientation
tag but drops 16-bit precision.
*/
package tiff2png

import "fmt"

type Tiff2PNGVersion struct {
	Major, Minor, Patch uint
}

func (v Tiff2PNGVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Tiff2PNGVersion) Equal(o Tiff2PNGVersion) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch
}

func (v Tiff2PNGVersion) After(o Tiff2PNGVersion) bool {
	switch {
	case v.Major != o.Major:
		return v.Major > o.Major
	case v.Minor != o.Minor:
		return v.Minor > o.Minor
	}
	return v.Patch > o.Patch
}

func (v Tiff2PNGVersion) Before(o Tiff2PNGVersion) bool {
	return !v.Equal(o) && !v.After(o)
}

var Version = Tiff2PNGVersion{1, 0, 0}

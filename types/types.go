package types

import (
	"fmt"
)

var _ = fmt.Print

// Tag is a TIFF field tag number.
type Tag uint16

// TIFF tags the converter cares about.
const (
	ImageWidth                Tag = 256
	ImageLength               Tag = 257
	BitsPerSample             Tag = 258
	Compression               Tag = 259
	PhotometricInterpretation Tag = 262
	FillOrder                 Tag = 266
	StripOffsets              Tag = 273
	Orientation               Tag = 274
	SamplesPerPixel           Tag = 277
	RowsPerStrip              Tag = 278
	StripByteCounts           Tag = 279
	PlanarConfiguration       Tag = 284
	Predictor                 Tag = 317
	TileWidth                 Tag = 322
	ExtraSamples              Tag = 338
	SampleFormat              Tag = 339
)

var tagNames = map[Tag]string{
	ImageWidth:                "ImageWidth",
	ImageLength:               "ImageLength",
	BitsPerSample:             "BitsPerSample",
	Compression:               "Compression",
	PhotometricInterpretation: "PhotometricInterpretation",
	FillOrder:                 "FillOrder",
	StripOffsets:              "StripOffsets",
	Orientation:               "Orientation",
	SamplesPerPixel:           "SamplesPerPixel",
	RowsPerStrip:              "RowsPerStrip",
	StripByteCounts:           "StripByteCounts",
	PlanarConfiguration:       "PlanarConfiguration",
	Predictor:                 "Predictor",
	TileWidth:                 "TileWidth",
	ExtraSamples:              "ExtraSamples",
	SampleFormat:              "SampleFormat",
}

func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Tag(%d)", uint16(t))
}

// ColorModel is the TIFF photometric interpretation of a source image.
type ColorModel uint32

const (
	WhiteIsZero      ColorModel = 0
	BlackIsZero      ColorModel = 1
	RGB              ColorModel = 2
	Paletted         ColorModel = 3
	TransparencyMask ColorModel = 4
	CMYK             ColorModel = 5
	YCbCr            ColorModel = 6
	CIELab           ColorModel = 8

	// Gray is the only grayscale model that is converted.
	Gray = BlackIsZero
)

var colorModelNames = map[ColorModel]string{
	WhiteIsZero:      "WhiteIsZero",
	BlackIsZero:      "Gray",
	RGB:              "RGB",
	Paletted:         "Paletted",
	TransparencyMask: "TransparencyMask",
	CMYK:             "CMYK",
	YCbCr:            "YCbCr",
	CIELab:           "CIELab",
}

func (c ColorModel) String() string {
	if n, ok := colorModelNames[c]; ok {
		return n
	}
	return fmt.Sprintf("ColorModel(%d)", uint32(c))
}

// Descriptor holds the properties of a source image needed to pick an output
// layout and size the per row buffers.
type Descriptor struct {
	Width, Height   uint32
	BitsPerSample   uint32
	SamplesPerPixel uint32
	ColorModel      ColorModel
}

// BitsPerPixel is the bit stride between horizontally adjacent pixels.
func (d Descriptor) BitsPerPixel() int {
	return int(d.BitsPerSample) * int(d.SamplesPerPixel)
}

// ScanlineSize is the number of bytes in one row of source pixel data.
func (d Descriptor) ScanlineSize() int {
	return (int(d.Width)*d.BitsPerPixel() + 7) / 8
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%dx%d %s %d-bit x %d", d.Width, d.Height, d.ColorModel, d.BitsPerSample, d.SamplesPerPixel)
}

// ColorType is a PNG color type as stored in the IHDR chunk.
type ColorType uint8

const (
	ColorGray      ColorType = 0
	ColorRGB       ColorType = 2
	ColorGrayAlpha ColorType = 4
	ColorRGBA      ColorType = 6
)

func (c ColorType) String() string {
	switch c {
	case ColorGray:
		return "Gray"
	case ColorRGB:
		return "RGB"
	case ColorGrayAlpha:
		return "GrayAlpha"
	case ColorRGBA:
		return "RGBA"
	}
	return fmt.Sprintf("ColorType(%d)", uint8(c))
}

// Channels returns the number of samples per pixel for the color type, or
// zero for color types that cannot be produced.
func (c ColorType) Channels() int {
	switch c {
	case ColorGray:
		return 1
	case ColorGrayAlpha:
		return 2
	case ColorRGB:
		return 3
	case ColorRGBA:
		return 4
	}
	return 0
}

// Layout is the pixel layout of the rows handed to the encoder.
type Layout struct {
	ColorType ColorType
	BitDepth  int
}

// RGBA8 is the fixed layout produced from a packed ARGB raster.
var RGBA8 = Layout{ColorType: ColorRGBA, BitDepth: 8}

func (l Layout) Channels() int { return l.ColorType.Channels() }

func (l Layout) BytesPerPixel() int { return l.Channels() * l.BitDepth / 8 }

func (l Layout) RowBytes(width int) int { return width * l.BytesPerPixel() }

func (l Layout) String() string {
	return fmt.Sprintf("%s%d", l.ColorType, l.BitDepth)
}

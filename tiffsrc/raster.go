package tiffsrc

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/kovidgoyal/tiff2png/types"
	"golang.org/x/image/tiff"
	"golang.org/x/sys/cpu"
)

var _ = fmt.Print

// hostOrder is compared against the file byte order to decide whether
// 16-bit samples need swapping.
var hostOrder binary.ByteOrder = binary.LittleEndian

func init() {
	if cpu.IsBigEndian {
		hostOrder = binary.BigEndian
	}
}

// orientation is the TIFF Orientation tag, the same flag EXIF uses.
type orientation int

const (
	orientationTopLeft     orientation = 1
	orientationTopRight    orientation = 2
	orientationBottomRight orientation = 3
	orientationBottomLeft  orientation = 4
	orientationLeftTop     orientation = 5
	orientationRightTop    orientation = 6
	orientationRightBottom orientation = 7
	orientationLeftBottom  orientation = 8
)

func (d *Decoder) orientation() orientation {
	o := orientation(d.intField(types.Orientation))
	if o < orientationTopLeft || o > orientationLeftBottom {
		return orientationTopLeft
	}
	return o
}

// RasterSize is the size of the image once its orientation has been
// normalized to top-left.
func (d *Decoder) RasterSize() (width, height int) {
	if d.orientation() >= orientationLeftTop {
		return d.height, d.width
	}
	return d.width, d.height
}

// destination maps a stored pixel position to its top-left oriented
// position in an image of stored size w x h.
func (o orientation) destination(x, y, w, h int) (int, int) {
	switch o {
	case orientationTopRight:
		return w - 1 - x, y
	case orientationBottomRight:
		return w - 1 - x, h - 1 - y
	case orientationBottomLeft:
		return x, h - 1 - y
	case orientationLeftTop:
		return y, x
	case orientationRightTop:
		return h - 1 - y, x
	case orientationRightBottom:
		return h - 1 - y, w - 1 - x
	case orientationLeftBottom:
		return y, w - 1 - x
	}
	return x, y
}

// PackARGB packs non-premultiplied channels into a 0xAARRGGBB value.
func PackARGB(a, r, g, b uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// ReadRGBAImage decodes the whole image into raster, which must hold
// RasterSize() width*height pixels of four bytes each. Every pixel is stored
// as a host byte order uint32 in 0xAARRGGBB form with straight alpha, rows
// top to bottom, regardless of the orientation and sample layout of the
// file. Images without alpha are fully opaque and 16-bit samples are reduced
// to 8 bits.
//
// Gray and RGB images that ReadScanline can serve are converted a scanline
// at a time. Everything else is handed to x/image/tiff, which decodes the
// whole image in memory first, see DecodeBufferSize.
func (d *Decoder) ReadRGBAImage(raster []byte) error {
	w, h := d.RasterSize()
	if len(raster) != 4*w*h {
		return fmt.Errorf("tiffsrc: raster is %d bytes, need %d", len(raster), 4*w*h)
	}
	o := d.orientation()
	put := func(x, y int, px uint32) {
		dx, dy := o.destination(x, y, d.width, d.height)
		binary.NativeEndian.PutUint32(raster[4*(dy*w+dx):], px)
	}
	if d.streamable() {
		return d.readRGBAByScanline(put)
	}
	return d.readRGBADecoded(put)
}

// streamable reports whether the raster can be built from scanlines.
func (d *Decoder) streamable() bool {
	if d.scanlineAccess() != nil || (d.bps != 8 && d.bps != 16) {
		return false
	}
	pm, _ := d.Field(types.PhotometricInterpretation)
	switch types.ColorModel(pm) {
	case types.Gray:
		return d.spp == 1 || d.spp == 2
	case types.RGB:
		return d.spp == 3 || d.spp == 4
	}
	return false
}

// DecodeBufferSize estimates the memory ReadRGBAImage needs besides the
// raster itself: one scanline when the image streams, otherwise the
// decoded image x/image/tiff builds plus one decompressed strip.
func (d *Decoder) DecodeBufferSize() int {
	if d.streamable() {
		return d.scanlineSize
	}
	px := uint64(4)
	if d.bps > 8 {
		px = 8
	}
	n := px*uint64(d.width)*uint64(d.height) + uint64(d.rowsPerStrip)*uint64(d.scanlineSize)
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

func (d *Decoder) readRGBAByScanline(put func(x, y int, px uint32)) error {
	row := make([]byte, d.scanlineSize)
	pm, _ := d.Field(types.PhotometricInterpretation)
	gray := types.ColorModel(pm) == types.Gray
	associated := d.intField(types.ExtraSamples) == extraSamplesAssociatedAlpha
	var s [4]uint32 // samples widened to 16 bits
	for y := range d.height {
		if err := d.ReadScanline(row, y); err != nil {
			return err
		}
		for x := range d.width {
			for c := range d.spp {
				i := x*d.spp + c
				if d.bps == 16 {
					s[c] = uint32(binary.NativeEndian.Uint16(row[2*i:]))
				} else {
					s[c] = uint32(row[i]) * 0x101
				}
			}
			var r, g, b, a uint32
			if gray {
				r, g, b, a = s[0], s[0], s[0], 0xffff
				if d.spp == 2 {
					a = s[1]
				}
			} else {
				r, g, b, a = s[0], s[1], s[2], 0xffff
				if d.spp == 4 {
					a = s[3]
				}
			}
			if associated && a != 0xffff {
				r, g, b = unpremultiply(r, a), unpremultiply(g, a), unpremultiply(b, a)
			}
			put(x, y, PackARGB(uint8(a>>8), uint8(r>>8), uint8(g>>8), uint8(b>>8)))
		}
	}
	return nil
}

func unpremultiply(v, a uint32) uint32 {
	if a == 0 {
		return 0
	}
	return min(v*0xffff/a, 0xffff)
}

func (d *Decoder) readRGBADecoded(put func(x, y int, px uint32)) error {
	img, err := tiff.Decode(io.NewSectionReader(d.r, 0, d.size))
	if err != nil {
		return fmt.Errorf("tiffsrc: decoding raster: %w", err)
	}
	b := img.Bounds()
	if b.Dx() != d.width || b.Dy() != d.height {
		return FormatError(fmt.Sprintf("decoded size %dx%d does not match %dx%d", b.Dx(), b.Dy(), d.width, d.height))
	}
	switch src := img.(type) {
	case *image.Gray:
		for y := range d.height {
			row := src.Pix[y*src.Stride : y*src.Stride+d.width]
			for x, v := range row {
				put(x, y, PackARGB(0xff, v, v, v))
			}
		}
	case *image.NRGBA:
		for y := range d.height {
			row := src.Pix[y*src.Stride : y*src.Stride+4*d.width]
			for x := range d.width {
				s := row[4*x : 4*x+4 : 4*x+4]
				put(x, y, PackARGB(s[3], s[0], s[1], s[2]))
			}
		}
	default:
		for y := range d.height {
			for x := range d.width {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				put(x, y, PackARGB(c.A, c.R, c.G, c.B))
			}
		}
	}
	return nil
}

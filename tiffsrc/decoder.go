// Package tiffsrc reads classic TIFF files one scanline at a time, the way
// libtiff's scanline interface does, or as a single packed ARGB raster.
package tiffsrc

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kovidgoyal/tiff2png/types"
	exif_tiff "github.com/rwcarlsen/goexif/tiff"
)

var _ = fmt.Print

// A FormatError reports that the input is not a valid TIFF image.
type FormatError string

func (e FormatError) Error() string { return "tiffsrc: invalid format: " + string(e) }

// An UnsupportedError reports that the input uses a valid but unimplemented
// feature.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "tiffsrc: unsupported feature: " + string(e) }

// Compression schemes understood by ReadScanline.
const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionPackBits   = 32773
	compressionDeflateOld = 32946
)

const (
	predictorNone       = 1
	predictorHorizontal = 2
)

const extraSamplesAssociatedAlpha = 1

// defaults applied when a tag is absent, as TIFF 6.0 defines them.
// Tags without an entry here have no default.
var defaults = map[types.Tag]uint32{
	types.BitsPerSample:       1,
	types.SamplesPerPixel:     1,
	types.Compression:         compressionNone,
	types.Orientation:         1,
	types.PlanarConfiguration: 1,
	types.Predictor:           predictorNone,
	types.RowsPerStrip:        math.MaxUint32,
	types.FillOrder:           1,
}

// Decoder gives access to the first image of a TIFF file.
type Decoder struct {
	r      io.ReaderAt
	size   int64
	closer io.Closer
	order  binary.ByteOrder
	fields map[types.Tag][]int64

	width, height, bps, spp int
	compression, predictor  int
	rowsPerStrip            int
	scanlineSize            int

	// The strip being decoded and the next row its stream will yield.
	strip    int
	stripRow int
	stream   io.Reader
	release  func() error
}

// Open opens the named TIFF file. The returned Decoder owns the file handle
// and must be closed.
func Open(name string) (*Decoder, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	d, err := NewDecoder(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// NewDecoder parses the first image file directory of the TIFF data in r.
func NewDecoder(r io.ReaderAt, size int64) (*Decoder, error) {
	t, err := exif_tiff.Decode(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("tiffsrc: %w", err)
	}
	if len(t.Dirs) == 0 {
		return nil, FormatError("no image file directory")
	}
	d := &Decoder{r: r, size: size, order: t.Order, fields: make(map[types.Tag][]int64), strip: -1}
	for _, tag := range t.Dirs[0].Tags {
		if tag.Format() != exif_tiff.IntVal {
			continue
		}
		vals := make([]int64, 0, tag.Count)
		for i := range int(tag.Count) {
			v, err := tag.Int64(i)
			if err != nil {
				return nil, fmt.Errorf("tiffsrc: reading tag %s: %w", types.Tag(tag.Id), err)
			}
			vals = append(vals, v)
		}
		d.fields[types.Tag(tag.Id)] = vals
	}
	d.width, d.height = d.intField(types.ImageWidth), d.intField(types.ImageLength)
	d.bps, d.spp = d.intField(types.BitsPerSample), d.intField(types.SamplesPerPixel)
	d.compression, d.predictor = d.intField(types.Compression), d.intField(types.Predictor)
	d.rowsPerStrip = d.intField(types.RowsPerStrip)
	if d.rowsPerStrip <= 0 || d.rowsPerStrip > d.height {
		d.rowsPerStrip = d.height
	}
	d.scanlineSize = (d.width*d.bps*d.spp + 7) / 8
	return d, nil
}

func (d *Decoder) intField(tag types.Tag) int {
	v, _ := d.Field(tag)
	return int(v)
}

// Field returns the first value of an integer valued tag, falling back to
// the TIFF default for tags that have one. The boolean is false when the
// tag is absent and has no default.
func (d *Decoder) Field(tag types.Tag) (uint32, bool) {
	if vals, ok := d.fields[tag]; ok && len(vals) > 0 {
		return uint32(vals[0]), true
	}
	v, ok := defaults[tag]
	return v, ok
}

// ByteOrder is the byte order of the file.
func (d *Decoder) ByteOrder() binary.ByteOrder { return d.order }

// ScanlineSize is the size in bytes of the rows returned by ReadScanline.
func (d *Decoder) ScanlineSize() int { return d.scanlineSize }

// Close releases the strip decompressor and closes the underlying file, if
// the Decoder was created by Open.
func (d *Decoder) Close() (err error) {
	d.endStrip()
	if d.closer != nil {
		err = d.closer.Close()
		d.closer = nil
	}
	return
}

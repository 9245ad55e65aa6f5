package tiff2png

import (
	"fmt"

	"github.com/kovidgoyal/tiff2png/types"
)

var _ = fmt.Print

// Extraction selects how pixel data is pulled out of the source image.
type Extraction int

const (
	// NativeScanline reads one row at a time in the source layout,
	// preserving 16-bit samples. Orientation is not applied.
	NativeScanline Extraction = iota
	// WholeRaster decodes the full image into packed ARGB pixels, oriented
	// top-left, and always writes 8-bit RGBA.
	WholeRaster
)

func (e Extraction) String() string {
	switch e {
	case NativeScanline:
		return "scanline"
	case WholeRaster:
		return "raster"
	}
	return fmt.Sprintf("Extraction(%d)", int(e))
}

// ScanlineReader is implemented by sources that can decode one row at a
// time. Rows have the sample layout of the file with 16-bit samples in host
// byte order.
type ScanlineReader interface {
	ScanlineSize() int
	ReadScanline(buf []byte, row int) error
}

// RasterReader is implemented by sources that can decode the whole image
// into packed 0xAARRGGBB pixels stored in host byte order.
type RasterReader interface {
	RasterSize() (width, height int)
	ReadRGBAImage(raster []byte) error
}

// decode_buffer_sizer is implemented by raster readers that allocate
// working memory outside the Allocator while decoding.
type decode_buffer_sizer interface {
	DecodeBufferSize() int
}

// Source is a decoded image. It must also implement ScanlineReader for
// NativeScanline extraction and RasterReader for WholeRaster extraction.
type Source interface {
	FieldSource
}

// SourceRow is one row of source pixel data. Pix is only valid until the
// next call to Row.
type SourceRow struct {
	Y      int
	Pix    []byte
	Packed bool // Pix holds packed ARGB pixels
}

// RowSource produces the rows of an image, in order from 0 to height-1. The
// sequence cannot be restarted.
type RowSource interface {
	Layout() types.Layout
	Size() (width, height int)
	Row(y int) (SourceRow, error)
	Close() error
}

type row_cursor struct {
	next   int
	height int
	closed bool
}

func (c *row_cursor) advance(y int) error {
	switch {
	case c.closed:
		return row_failure(y, fmt.Errorf("row source is closed"))
	case y != c.next:
		return row_failure(y, fmt.Errorf("rows must be read in order, expected row %d", c.next))
	case y >= c.height:
		return row_failure(y, fmt.Errorf("image has only %d rows", c.height))
	}
	c.next++
	return nil
}

type native_rows struct {
	row_cursor
	r      ScanlineReader
	layout types.Layout
	width  int
	buf    []byte
}

// NewRowSource reads the descriptor of src, selects and validates the target
// layout for the chosen extraction and allocates the buffers rows are read
// into from a.
// The buffers are handed back to a by the returned release function, which
// must be called once the RowSource is no longer in use, even on error.
func NewRowSource(src Source, e Extraction, a Allocator) (rs RowSource, release func(), err error) {
	if a == nil {
		a = LimitedAllocator(DefaultAllocationLimit)
	}
	d, err := ReadDescriptor(src)
	if err != nil {
		return nil, func() {}, err
	}
	bufs := &buffers{a: a}
	if rs, err = new_row_source(src, d, e, bufs); err != nil {
		bufs.release()
		return nil, func() {}, err
	}
	return rs, bufs.release, nil
}

func new_row_source(src Source, d types.Descriptor, e Extraction, bufs *buffers) (RowSource, error) {
	switch e {
	case NativeScanline:
		return new_native_rows(src, d, bufs)
	case WholeRaster:
		return new_raster_rows(src, bufs)
	}
	return nil, failf(InvalidInput, "unknown extraction strategy: %s", e)
}

func new_native_rows(src Source, d types.Descriptor, bufs *buffers) (*native_rows, error) {
	layout, err := SelectLayout(d)
	if err != nil {
		return nil, err
	}
	if err = CheckLayout(d, layout); err != nil {
		return nil, err
	}
	sr, ok := src.(ScanlineReader)
	if !ok {
		return nil, failf(InvalidInput, "%T cannot be read one scanline at a time", src)
	}
	if sz := sr.ScanlineSize(); sz != d.ScanlineSize() {
		return nil, failf(InvalidInput, "scanline size %d does not match %s", sz, d)
	}
	buf, err := bufs.get(d.ScanlineSize())
	if err != nil {
		return nil, err
	}
	return &native_rows{
		row_cursor: row_cursor{height: int(d.Height)},
		r:          sr, layout: layout, width: int(d.Width), buf: buf,
	}, nil
}

func (n *native_rows) Layout() types.Layout      { return n.layout }
func (n *native_rows) Size() (width, height int) { return n.width, n.height }

func (n *native_rows) Row(y int) (SourceRow, error) {
	if err := n.advance(y); err != nil {
		return SourceRow{}, err
	}
	if err := n.r.ReadScanline(n.buf, y); err != nil {
		return SourceRow{}, row_failure(y, err)
	}
	return SourceRow{Y: y, Pix: n.buf}, nil
}

func (n *native_rows) Close() error {
	n.closed = true
	n.r = nil
	return nil
}

type raster_rows struct {
	row_cursor
	r      RasterReader
	img    *ARGB
	loaded bool
}

func new_raster_rows(src Source, bufs *buffers) (*raster_rows, error) {
	rr, ok := src.(RasterReader)
	if !ok {
		return nil, failf(InvalidInput, "%T cannot be decoded into a raster", src)
	}
	w, h := rr.RasterSize()
	sz, err := raster_size(w, h)
	if err != nil {
		return nil, err
	}
	if ds, ok := rr.(decode_buffer_sizer); ok {
		if b, ok := bufs.a.(Budget); ok {
			if n := ds.DecodeBufferSize(); !b.Allows(n) {
				return nil, failf(AllocationFailure, "decoding the raster needs a further %d bytes, more than the allocator allows", n)
			}
		}
	}
	pix, err := bufs.get(sz)
	if err != nil {
		return nil, err
	}
	img, err := NewARGBWithContiguousPixels(pix, w, h)
	if err != nil {
		return nil, fail(InvalidInput, err)
	}
	return &raster_rows{row_cursor: row_cursor{height: h}, r: rr, img: img}, nil
}

func (r *raster_rows) Layout() types.Layout { return types.RGBA8 }

func (r *raster_rows) Size() (width, height int) { return r.img.Rect.Dx(), r.height }

func (r *raster_rows) Row(y int) (SourceRow, error) {
	if err := r.advance(y); err != nil {
		return SourceRow{}, err
	}
	if !r.loaded {
		// the whole image is decoded in one call, so any failure counts
		// against the first row
		if err := r.r.ReadRGBAImage(r.img.Pix); err != nil {
			return SourceRow{}, row_failure(0, err)
		}
		r.loaded = true
	}
	return SourceRow{Y: y, Pix: r.img.Row(y), Packed: true}, nil
}

func (r *raster_rows) Close() error {
	r.closed = true
	r.r = nil
	return nil
}

package tiffsrc

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/kovidgoyal/tiff2png/types"
	"golang.org/x/image/tiff/lzw"
)

var _ = fmt.Print

// ReadScanline fills buf with row number row of the image in the file's
// sample layout. 16-bit samples are returned in host byte order. Each strip
// is decompressed as a stream, one scanline per call, so only buf holds
// decoded samples. Reading rows in increasing order decompresses every strip
// once; going back restarts the strip from its first row.
func (d *Decoder) ReadScanline(buf []byte, row int) error {
	if err := d.scanlineAccess(); err != nil {
		return err
	}
	if row < 0 || row >= d.height {
		return FormatError(fmt.Sprintf("row %d out of range [0, %d)", row, d.height))
	}
	if len(buf) < d.scanlineSize {
		return fmt.Errorf("tiffsrc: scanline buffer too small: %d < %d", len(buf), d.scanlineSize)
	}
	buf = buf[:d.scanlineSize]
	strip, want := row/d.rowsPerStrip, row%d.rowsPerStrip
	if strip != d.strip || want < d.stripRow {
		if err := d.openStrip(strip); err != nil {
			d.endStrip()
			return err
		}
	}
	for ; d.stripRow <= want; d.stripRow++ {
		if _, err := io.ReadFull(d.stream, buf); err != nil {
			d.endStrip()
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return FormatError(fmt.Sprintf("strip %d ends before row %d", strip, row))
			}
			return fmt.Errorf("tiffsrc: decompressing strip %d: %w", strip, err)
		}
	}
	if d.bps == 16 && d.order != hostOrder {
		swab16(buf)
	}
	if d.predictor == predictorHorizontal {
		return d.undoHorizontalDifferencing(buf)
	}
	return nil
}

// scanlineAccess reports why ReadScanline cannot serve this image, if it
// cannot.
func (d *Decoder) scanlineAccess() error {
	if _, tiled := d.fields[types.TileWidth]; tiled {
		return UnsupportedError("scanline access to a tiled image")
	}
	if pc, _ := d.Field(types.PlanarConfiguration); pc != 1 {
		return UnsupportedError(fmt.Sprintf("planar configuration %d", pc))
	}
	switch d.compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateOld, compressionPackBits:
	default:
		return UnsupportedError(fmt.Sprintf("compression value %d", d.compression))
	}
	switch d.predictor {
	case predictorNone:
	case predictorHorizontal:
		if d.bps != 8 && d.bps != 16 {
			return UnsupportedError(fmt.Sprintf("horizontal predictor with %d bits per sample", d.bps))
		}
	default:
		return UnsupportedError(fmt.Sprintf("predictor value %d", d.predictor))
	}
	return nil
}

// openStrip positions the decompressed stream at the first row of strip.
func (d *Decoder) openStrip(strip int) (err error) {
	d.endStrip()
	offsets, counts := d.fields[types.StripOffsets], d.fields[types.StripByteCounts]
	if strip >= len(offsets) {
		return FormatError(fmt.Sprintf("missing offset for strip %d", strip))
	}
	if strip >= len(counts) {
		return FormatError(fmt.Sprintf("missing byte count for strip %d", strip))
	}
	offset, count := offsets[strip], counts[strip]
	if offset < 0 || count < 0 || offset+count > d.size {
		return FormatError(fmt.Sprintf("strip %d lies outside the file", strip))
	}
	src := io.NewSectionReader(d.r, offset, count)
	switch d.compression {
	case compressionNone:
		d.stream = src
	case compressionLZW:
		rc := lzw.NewReader(src, lzw.MSB, 8)
		d.stream, d.release = rc, rc.Close
	case compressionDeflate, compressionDeflateOld:
		rc, err := zlib.NewReader(src)
		if err != nil {
			return fmt.Errorf("tiffsrc: decompressing strip %d: %w", strip, err)
		}
		d.stream, d.release = rc, rc.Close
	case compressionPackBits:
		d.stream = &packBitsReader{r: bufio.NewReader(src)}
	}
	d.strip, d.stripRow = strip, 0
	return nil
}

func (d *Decoder) endStrip() {
	if d.release != nil {
		d.release()
	}
	d.stream, d.release, d.strip, d.stripRow = nil, nil, -1, 0
}

func (d *Decoder) undoHorizontalDifferencing(row []byte) error {
	switch d.bps {
	case 8:
		for i := d.spp; i < len(row); i++ {
			row[i] += row[i-d.spp]
		}
	case 16:
		stride := 2 * d.spp
		for i := stride; i+1 < len(row); i += 2 {
			v := binary.NativeEndian.Uint16(row[i:]) + binary.NativeEndian.Uint16(row[i-stride:])
			binary.NativeEndian.PutUint16(row[i:], v)
		}
	default:
		return UnsupportedError(fmt.Sprintf("horizontal predictor with %d bits per sample", d.bps))
	}
	return nil
}

// packBitsReader decodes a PackBits run-length stream.
type packBitsReader struct {
	r       io.ByteReader
	run     int // bytes left in the current run
	literal bool
	repeat  byte
}

func (p *packBitsReader) Read(buf []byte) (n int, err error) {
	for n < len(buf) {
		if p.run == 0 {
			h, err := p.r.ReadByte()
			if err != nil {
				if n > 0 && err == io.EOF {
					err = nil
				}
				return n, err
			}
			switch c := int(int8(h)); {
			case c >= 0:
				p.run, p.literal = c+1, true
			case c != -128:
				if p.repeat, err = p.r.ReadByte(); err != nil {
					return n, unexpectedEOF(err)
				}
				p.run, p.literal = 1-c, false
			}
			continue
		}
		if p.literal {
			b, err := p.r.ReadByte()
			if err != nil {
				return n, unexpectedEOF(err)
			}
			buf[n] = b
		} else {
			buf[n] = p.repeat
		}
		n++
		p.run--
	}
	return n, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// unpackBits decodes PackBits data from src until dst is full.
func unpackBits(dst, src []byte) error {
	if _, err := io.ReadFull(&packBitsReader{r: bytes.NewReader(src)}, dst); err != nil {
		return FormatError("short PackBits data: " + err.Error())
	}
	return nil
}

// swab16 reverses the bytes of every 16-bit sample in b.
func swab16(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
}

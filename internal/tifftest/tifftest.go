// Package tifftest writes small strip-organized TIFF files for tests,
// covering sample layouts that golang.org/x/image/tiff cannot produce, such
// as 3 sample RGB, gray+alpha and big-endian files.
package tifftest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/klauspost/compress/zlib"
	"github.com/kovidgoyal/tiff2png/types"
)

var _ = fmt.Print

const (
	CompressionNone     = 1
	CompressionLZW      = 5
	CompressionDeflate  = 8
	CompressionPackBits = 32773
)

const (
	typeShort = 3
	typeLong  = 4
)

// Image describes the file to write. Pix holds the rows top to bottom with
// 16-bit samples in big-endian order; Encode converts them to Order.
type Image struct {
	Order                          binary.ByteOrder // defaults to little-endian
	Width, Height                  int
	BitsPerSample, SamplesPerPixel int
	Photometric                    types.ColorModel
	Orientation                    int // 0 omits the tag
	RowsPerStrip                   int // 0 puts every row in one strip
	Compression                    int // 0 means none
	Predictor                      int // 0 omits the tag
	ExtraSamples                   []uint32
	Pix                            []byte

	// Omit leaves these tags out of the directory entirely.
	Omit []types.Tag
	// BadStrips get a byte count that runs past the end of the file.
	BadStrips []int
	// Tiled adds a TileWidth tag.
	Tiled bool
}

type entry struct {
	tag  types.Tag
	typ  uint16
	vals []uint32
}

func (e entry) size() int {
	if e.typ == typeShort {
		return 2 * len(e.vals)
	}
	return 4 * len(e.vals)
}

func (e entry) encode(order binary.ByteOrder) []byte {
	b := make([]byte, max(4, e.size()))
	for i, v := range e.vals {
		if e.typ == typeShort {
			order.PutUint16(b[2*i:], uint16(v))
		} else {
			order.PutUint32(b[4*i:], v)
		}
	}
	return b
}

// RowBytes is the size of one row of m.Pix.
func (m Image) RowBytes() int {
	return (m.Width*m.BitsPerSample*m.SamplesPerPixel + 7) / 8
}

func (m Image) strips() (ans [][]byte) {
	order := m.order()
	rps := m.rowsPerStrip()
	rowBytes := m.RowBytes()
	for start := 0; start < m.Height; start += rps {
		rows := min(rps, m.Height-start)
		data := slices.Clone(m.Pix[start*rowBytes : (start+rows)*rowBytes])
		if m.BitsPerSample == 16 {
			for i := 0; i+1 < len(data); i += 2 {
				order.PutUint16(data[i:], binary.BigEndian.Uint16(data[i:]))
			}
		}
		if m.Predictor == 2 {
			for r := range rows {
				applyDifferencing(data[r*rowBytes:(r+1)*rowBytes], m.BitsPerSample, m.SamplesPerPixel, order)
			}
		}
		switch m.Compression {
		case CompressionDeflate:
			var buf bytes.Buffer
			zw := zlib.NewWriter(&buf)
			zw.Write(data)
			zw.Close()
			data = buf.Bytes()
		case CompressionLZW:
			data = lzwLiterals(data)
		case CompressionPackBits:
			data = packBits(data)
		}
		ans = append(ans, data)
	}
	return
}

func applyDifferencing(row []byte, bps, spp int, order binary.ByteOrder) {
	switch bps {
	case 8:
		for i := len(row) - 1; i >= spp; i-- {
			row[i] -= row[i-spp]
		}
	case 16:
		stride := 2 * spp
		for i := len(row) - 2; i >= stride; i -= 2 {
			order.PutUint16(row[i:], order.Uint16(row[i:])-order.Uint16(row[i-stride:]))
		}
	}
}

// packBits encodes src using only literal runs, which every PackBits
// decoder must accept.
func packBits(src []byte) []byte {
	var out []byte
	for len(src) > 0 {
		n := min(len(src), 128)
		out = append(out, byte(n-1))
		out = append(out, src[:n]...)
		src = src[n:]
	}
	return out
}

// lzwLiterals encodes src as TIFF LZW using only literal codes, with a
// clear code often enough that the code width never grows past 9 bits.
func lzwLiterals(src []byte) []byte {
	const clear, eoi, width, run = 256, 257, 9, 250
	var out []byte
	var acc uint32
	nbits := 0
	emit := func(code uint32) {
		acc = acc<<width | code
		nbits += width
		for nbits >= 8 {
			out = append(out, byte(acc>>(nbits-8)))
			nbits -= 8
		}
	}
	for i, b := range src {
		if i%run == 0 {
			emit(clear)
		}
		emit(uint32(b))
	}
	if len(src) == 0 {
		emit(clear)
	}
	emit(eoi)
	if nbits > 0 {
		out = append(out, byte(acc<<(8-nbits)))
	}
	return out
}

func appendUint16(b []byte, order binary.ByteOrder, v uint16) []byte {
	var s [2]byte
	order.PutUint16(s[:], v)
	return append(b, s[:]...)
}

func appendUint32(b []byte, order binary.ByteOrder, v uint32) []byte {
	var s [4]byte
	order.PutUint32(s[:], v)
	return append(b, s[:]...)
}

func (m Image) order() binary.ByteOrder {
	if m.Order == nil {
		return binary.LittleEndian
	}
	return m.Order
}

func (m Image) rowsPerStrip() int {
	if m.RowsPerStrip <= 0 || m.RowsPerStrip > m.Height {
		return max(1, m.Height)
	}
	return m.RowsPerStrip
}

// Encode serializes m as a classic TIFF file.
func Encode(m Image) []byte {
	order := m.order()
	strips := m.strips()
	offsets := make([]uint32, len(strips))
	counts := make([]uint32, len(strips))
	for i, s := range strips {
		counts[i] = uint32(len(s))
	}
	compression := m.Compression
	if compression == 0 {
		compression = CompressionNone
	}
	bps := make([]uint32, m.SamplesPerPixel)
	for i := range bps {
		bps[i] = uint32(m.BitsPerSample)
	}
	entries := []entry{
		{types.ImageWidth, typeLong, []uint32{uint32(m.Width)}},
		{types.ImageLength, typeLong, []uint32{uint32(m.Height)}},
		{types.BitsPerSample, typeShort, bps},
		{types.Compression, typeShort, []uint32{uint32(compression)}},
		{types.PhotometricInterpretation, typeShort, []uint32{uint32(m.Photometric)}},
		{types.StripOffsets, typeLong, offsets},
		{types.SamplesPerPixel, typeShort, []uint32{uint32(m.SamplesPerPixel)}},
		{types.RowsPerStrip, typeLong, []uint32{uint32(m.rowsPerStrip())}},
		{types.StripByteCounts, typeLong, counts},
		{types.PlanarConfiguration, typeShort, []uint32{1}},
	}
	if m.Orientation != 0 {
		entries = append(entries, entry{types.Orientation, typeShort, []uint32{uint32(m.Orientation)}})
	}
	if m.Predictor != 0 {
		entries = append(entries, entry{types.Predictor, typeShort, []uint32{uint32(m.Predictor)}})
	}
	if len(m.ExtraSamples) > 0 {
		entries = append(entries, entry{types.ExtraSamples, typeShort, m.ExtraSamples})
	}
	if m.Tiled {
		entries = append(entries, entry{types.TileWidth, typeLong, []uint32{16}})
	}
	entries = slices.DeleteFunc(entries, func(e entry) bool { return slices.Contains(m.Omit, e.tag) })
	slices.SortFunc(entries, func(a, b entry) int { return int(a.tag) - int(b.tag) })

	ifdSize := 2 + 12*len(entries) + 4
	pos := 8 + ifdSize
	valueOffsets := make([]int, len(entries))
	for i, e := range entries {
		if e.size() > 4 {
			valueOffsets[i] = pos
			pos += e.size() + e.size()%2
		}
	}
	for i, s := range strips {
		offsets[i] = uint32(pos)
		pos += len(s)
	}
	for _, i := range m.BadStrips {
		counts[i] = uint32(pos) + 1024
	}

	out := make([]byte, 0, pos)
	if order == binary.ByteOrder(binary.BigEndian) {
		out = append(out, 'M', 'M', 0, 42)
	} else {
		out = append(out, 'I', 'I', 42, 0)
	}
	out = appendUint32(out, order, 8)
	out = appendUint16(out, order, uint16(len(entries)))
	for i, e := range entries {
		out = appendUint16(out, order, uint16(e.tag))
		out = appendUint16(out, order, e.typ)
		out = appendUint32(out, order, uint32(len(e.vals)))
		if e.size() > 4 {
			out = appendUint32(out, order, uint32(valueOffsets[i]))
		} else {
			out = append(out, e.encode(order)...)
		}
	}
	out = appendUint32(out, order, 0)
	for _, e := range entries {
		if e.size() > 4 {
			out = append(out, e.encode(order)...)
			if e.size()%2 == 1 {
				out = append(out, 0)
			}
		}
	}
	for _, s := range strips {
		out = append(out, s...)
	}
	return out
}

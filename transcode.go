package tiff2png

import (
	"encoding/binary"
	"fmt"

	"github.com/kovidgoyal/tiff2png/types"
	"golang.org/x/sys/cpu"
)

var _ = fmt.Print

// Transcoder turns source rows into rows ready for the PNG encoder. The
// returned row is reused by the next call to Transcode.
type Transcoder struct {
	layout types.Layout
	width  int
	out    []byte
}

// NewTranscoder returns a Transcoder for rows width pixels wide in layout,
// writing into out, which must be layout.RowBytes(width) long.
func NewTranscoder(layout types.Layout, width int, out []byte) (*Transcoder, error) {
	if n := layout.RowBytes(width); len(out) != n {
		return nil, fmt.Errorf("output row is %d bytes, need %d", len(out), n)
	}
	return &Transcoder{layout: layout, width: width, out: out}, nil
}

func (t *Transcoder) Layout() types.Layout { return t.layout }

func (t *Transcoder) Transcode(src SourceRow) ([]byte, error) {
	if src.Packed {
		if t.layout != types.RGBA8 {
			return nil, row_failure(src.Y, fmt.Errorf("packed pixels cannot be written as %s", t.layout))
		}
		if len(src.Pix) != 4*t.width {
			return nil, row_failure(src.Y, fmt.Errorf("packed row has %d bytes, need %d", len(src.Pix), 4*t.width))
		}
		UnpackRow(t.out, src.Pix)
		return t.out, nil
	}
	if len(src.Pix) != len(t.out) {
		return nil, row_failure(src.Y, fmt.Errorf("source row has %d bytes, need %d", len(src.Pix), len(t.out)))
	}
	if t.layout.BitDepth == 16 {
		HostToBigEndian16(t.out, src.Pix)
	} else {
		copy(t.out, src.Pix)
	}
	return t.out, nil
}

// UnpackRow converts host byte order 0xAARRGGBB pixels into R, G, B, A
// bytes. dst must be at least as long as src.
func UnpackRow(dst, src []byte) {
	for i := 0; i+4 <= len(src); i += 4 {
		px := binary.NativeEndian.Uint32(src[i : i+4 : i+4])
		d := dst[i : i+4 : i+4]
		d[0] = uint8(px >> 16)
		d[1] = uint8(px >> 8)
		d[2] = uint8(px)
		d[3] = uint8(px >> 24)
	}
}

// HostToBigEndian16 copies src to dst converting every 16-bit sample from
// host to big-endian byte order.
func HostToBigEndian16(dst, src []byte) {
	if cpu.IsBigEndian {
		copy(dst, src)
		return
	}
	for i := 0; i+2 <= len(src); i += 2 {
		dst[i], dst[i+1] = src[i+1], src[i]
	}
}

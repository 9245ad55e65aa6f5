package pngstream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/kettek/apng"
	"github.com/kovidgoyal/tiff2png/types"
	"github.com/stretchr/testify/require"
)

var _ = fmt.Print

func rows_for(h Header) [][]byte {
	ans := make([][]byte, h.Height)
	n := h.Layout().RowBytes(h.Width)
	for y := range ans {
		ans[y] = make([]byte, n)
		for i := range n {
			// mix of smooth gradients and noise so every filter type gets picked
			if y%2 == 0 {
				ans[y][i] = byte(i + y)
			} else {
				ans[y][i] = byte(i*i*31 + y*7)
			}
		}
	}
	return ans
}

func encode(t *testing.T, h Header, rows [][]byte, opts ...Option) []byte {
	t.Helper()
	var buf bytes.Buffer
	e, err := NewEncoder(&buf, opts...)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader(h))
	for _, row := range rows {
		require.NoError(t, e.WriteRow(row))
	}
	require.NoError(t, e.Close())
	return buf.Bytes()
}

// pixel_bytes returns the big-endian sample bytes of the pixel at x, y in
// the given layout.
func pixel_bytes(t *testing.T, img image.Image, x, y int, l types.Layout) []byte {
	var s [4]uint16 // r, g, b, a
	switch m := img.(type) {
	case *image.Gray:
		v := uint16(m.GrayAt(x, y).Y) * 0x101
		s = [4]uint16{v, v, v, 0xffff}
	case *image.Gray16:
		v := m.Gray16At(x, y).Y
		s = [4]uint16{v, v, v, 0xffff}
	case *image.NRGBA:
		c := m.NRGBAAt(x, y)
		s = [4]uint16{uint16(c.R) * 0x101, uint16(c.G) * 0x101, uint16(c.B) * 0x101, uint16(c.A) * 0x101}
	case *image.NRGBA64:
		c := m.NRGBA64At(x, y)
		s = [4]uint16{c.R, c.G, c.B, c.A}
	case *image.RGBA:
		c := m.RGBAAt(x, y)
		s = [4]uint16{uint16(c.R) * 0x101, uint16(c.G) * 0x101, uint16(c.B) * 0x101, uint16(c.A) * 0x101}
	case *image.RGBA64:
		c := m.RGBA64At(x, y)
		s = [4]uint16{c.R, c.G, c.B, c.A}
	default:
		t.Fatalf("unexpected decoded image type: %T", img)
	}
	samples := s[:l.Channels()]
	switch l.ColorType {
	case types.ColorGray:
		samples = s[:1]
	case types.ColorGrayAlpha:
		samples = []uint16{s[0], s[3]}
	}
	var ans []byte
	for _, v := range samples {
		if l.BitDepth == 16 {
			ans = append(ans, byte(v>>8), byte(v))
		} else {
			ans = append(ans, byte(v>>8))
		}
	}
	return ans
}

func assert_decodes_to(t *testing.T, img image.Image, h Header, rows [][]byte) {
	t.Helper()
	require.Equal(t, image.Rect(0, 0, h.Width, h.Height), img.Bounds())
	l := h.Layout()
	for y := range h.Height {
		var got []byte
		for x := range h.Width {
			got = append(got, pixel_bytes(t, img, x, y, l)...)
		}
		require.Equal(t, rows[y], got, "row %d", y)
	}
}

func TestEncoderRoundTrip(t *testing.T) {
	for _, ct := range []types.ColorType{types.ColorGray, types.ColorGrayAlpha, types.ColorRGB, types.ColorRGBA} {
		for _, depth := range []int{8, 16} {
			for _, level := range []int{DefaultCompression, NoCompression, BestSpeed, BestCompression} {
				h := Header{Width: 13, Height: 7, BitDepth: depth, ColorType: ct}
				t.Run(fmt.Sprintf("%s/level%d", h.Layout(), level), func(t *testing.T) {
					rows := rows_for(h)
					data := encode(t, h, rows, CompressionLevel(level))

					cfg, err := png.DecodeConfig(bytes.NewReader(data))
					require.NoError(t, err)
					require.Equal(t, h.Width, cfg.Width)
					require.Equal(t, h.Height, cfg.Height)

					img, err := png.Decode(bytes.NewReader(data))
					require.NoError(t, err)
					assert_decodes_to(t, img, h, rows)

					img, err = apng.Decode(bytes.NewReader(data))
					require.NoError(t, err)
					assert_decodes_to(t, img, h, rows)
				})
			}
		}
	}
}

func TestEncoderLargeImageSpansChunks(t *testing.T) {
	h := Header{Width: 300, Height: 200, BitDepth: 16, ColorType: types.ColorRGBA}
	rows := rows_for(h)
	data := encode(t, h, rows, CompressionLevel(NoCompression))
	require.Greater(t, bytes.Count(data, []byte("IDAT")), 1)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert_decodes_to(t, img, h, rows)
}

// chunks returns the type and data length of every chunk in a PNG stream.
func chunks(t *testing.T, data []byte) (names []string, lengths []int) {
	t.Helper()
	require.Equal(t, pngHeader, string(data[:len(pngHeader)]))
	for data = data[len(pngHeader):]; len(data) > 0; {
		require.GreaterOrEqual(t, len(data), 12)
		n := int(binary.BigEndian.Uint32(data))
		names = append(names, string(data[4:8]))
		lengths = append(lengths, n)
		data = data[12+n:]
	}
	return
}

func TestEncoderChunkSize(t *testing.T) {
	h := Header{Width: 100000, Height: 2, BitDepth: 8, ColorType: types.ColorRGBA}
	rows := rows_for(h)
	data := encode(t, h, rows, CompressionLevel(NoCompression))
	names, lengths := chunks(t, data)
	require.Equal(t, "IHDR", names[0])
	require.Equal(t, "IEND", names[len(names)-1])
	idat := 0
	for i, name := range names {
		if name == "IDAT" {
			idat++
			require.LessOrEqual(t, lengths[i], idatChunkSize, "chunk %d", i)
		}
	}
	require.Greater(t, idat, 2*4*h.Width/idatChunkSize)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert_decodes_to(t, img, h, rows)
}

func TestEncoderIsDeterministic(t *testing.T) {
	h := Header{Width: 31, Height: 9, BitDepth: 8, ColorType: types.ColorRGB}
	rows := rows_for(h)
	require.Equal(t, encode(t, h, rows), encode(t, h, rows))
}

type failing_writer struct {
	budget int
}

func (w *failing_writer) Write(p []byte) (int, error) {
	if len(p) > w.budget {
		return 0, errors.New("disk full")
	}
	w.budget -= len(p)
	return len(p), nil
}

// panicking_writer panics on the write after the first after writes.
type panicking_writer struct {
	after, writes int
}

func (w *panicking_writer) Write(p []byte) (int, error) {
	w.writes++
	if w.writes > w.after {
		panic("boom")
	}
	return len(p), nil
}

func TestEncoderPanics(t *testing.T) {
	h := Header{Width: 2, Height: 2, BitDepth: 8, ColorType: types.ColorGray}

	t.Run("header", func(t *testing.T) {
		// the signature and the three writes of IHDR
		e, err := NewEncoder(&panicking_writer{after: 3})
		require.NoError(t, err)
		err = e.WriteHeader(h)
		require.ErrorIs(t, err, ErrInternal)
		var pe *Error
		require.ErrorAs(t, err, &pe)
		require.Equal(t, "write header", pe.Op)
		require.ErrorContains(t, err, "panic: boom")
		require.Equal(t, err, e.WriteRow([]byte{1, 2}))
		require.Equal(t, err, e.Close())
	})
	t.Run("finish", func(t *testing.T) {
		w := &panicking_writer{after: 4}
		e, err := NewEncoder(w)
		require.NoError(t, err)
		require.NoError(t, e.WriteHeader(h))
		require.NoError(t, e.WriteRow([]byte{1, 2}))
		require.NoError(t, e.WriteRow([]byte{3, 4}))
		err = e.Close()
		require.ErrorIs(t, err, ErrInternal)
		require.ErrorContains(t, err, "panic: boom")
		require.Equal(t, err, e.Close())
		require.Equal(t, 5, w.writes, "nothing is written after the panic")
	})
}

func TestEncoderErrors(t *testing.T) {
	h := Header{Width: 2, Height: 2, BitDepth: 8, ColorType: types.ColorGray}

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewEncoder(&bytes.Buffer{}, CompressionLevel(42))
		require.ErrorIs(t, err, ErrInternal)
	})
	t.Run("nil writer", func(t *testing.T) {
		_, err := NewEncoder(nil)
		require.ErrorIs(t, err, ErrInternal)
	})
	for _, bad := range []Header{
		{Width: 0, Height: 1, BitDepth: 8, ColorType: types.ColorGray},
		{Width: 1, Height: 1, BitDepth: 4, ColorType: types.ColorGray},
		{Width: 1, Height: 1, BitDepth: 8, ColorType: 3},
	} {
		t.Run(fmt.Sprintf("header %+v", bad), func(t *testing.T) {
			e, err := NewEncoder(&bytes.Buffer{})
			require.NoError(t, err)
			err = e.WriteHeader(bad)
			require.ErrorIs(t, err, ErrInternal)
			// sticky
			require.Equal(t, err, e.WriteRow([]byte{0}))
			require.Equal(t, err, e.Close())
		})
	}
	t.Run("row before header", func(t *testing.T) {
		e, err := NewEncoder(&bytes.Buffer{})
		require.NoError(t, err)
		require.ErrorIs(t, e.WriteRow([]byte{1, 2}), ErrInternal)
	})
	t.Run("wrong row length", func(t *testing.T) {
		e, err := NewEncoder(&bytes.Buffer{})
		require.NoError(t, err)
		require.NoError(t, e.WriteHeader(h))
		require.ErrorIs(t, e.WriteRow([]byte{1, 2, 3}), ErrInternal)
	})
	t.Run("too many rows", func(t *testing.T) {
		e, err := NewEncoder(&bytes.Buffer{})
		require.NoError(t, err)
		require.NoError(t, e.WriteHeader(h))
		require.NoError(t, e.WriteRow([]byte{1, 2}))
		require.NoError(t, e.WriteRow([]byte{1, 2}))
		require.ErrorIs(t, e.WriteRow([]byte{1, 2}), ErrInternal)
	})
	t.Run("too few rows", func(t *testing.T) {
		e, err := NewEncoder(&bytes.Buffer{})
		require.NoError(t, err)
		require.NoError(t, e.WriteHeader(h))
		require.NoError(t, e.WriteRow([]byte{1, 2}))
		require.ErrorIs(t, e.Close(), ErrInternal)
	})
	t.Run("header twice", func(t *testing.T) {
		e, err := NewEncoder(&bytes.Buffer{})
		require.NoError(t, err)
		require.NoError(t, e.WriteHeader(h))
		require.ErrorIs(t, e.WriteHeader(h), ErrInternal)
	})
	t.Run("failing writer", func(t *testing.T) {
		w := &failing_writer{budget: 40}
		e, err := NewEncoder(w)
		require.NoError(t, err)
		require.NoError(t, e.WriteHeader(h))
		require.NoError(t, e.WriteRow([]byte{1, 2}))
		require.NoError(t, e.WriteRow([]byte{3, 4}))
		err = e.Close()
		require.ErrorIs(t, err, ErrInternal)
		var pe *Error
		require.ErrorAs(t, err, &pe)
		require.Equal(t, "finish", pe.Op)
		require.ErrorContains(t, err, "disk full")
	})
}

func TestPaeth(t *testing.T) {
	for _, tc := range []struct{ a, b, c, want uint8 }{
		{0, 0, 0, 0},
		{10, 20, 10, 20},
		{20, 10, 10, 20},
		{10, 10, 20, 10},
		{100, 50, 200, 50},
		{255, 0, 128, 128},
	} {
		require.Equal(t, tc.want, paeth(tc.a, tc.b, tc.c), "%v", tc)
	}
}

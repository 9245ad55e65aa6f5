package tiffsrc

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/kovidgoyal/tiff2png/internal/tifftest"
	"github.com/kovidgoyal/tiff2png/types"
	"github.com/stretchr/testify/require"
)

var _ = fmt.Print

func raster_values(raster []byte) (ans []uint32) {
	for i := 0; i < len(raster); i += 4 {
		ans = append(ans, binary.NativeEndian.Uint32(raster[i:]))
	}
	return
}

func TestReadRGBAImageOrientation(t *testing.T) {
	// stored 2 wide and 3 tall:
	//   1 2
	//   3 4
	//   5 6
	testCases := []struct {
		orientation int
		w, h        int
		want        []byte
	}{
		{0, 2, 3, []byte{1, 2, 3, 4, 5, 6}},
		{1, 2, 3, []byte{1, 2, 3, 4, 5, 6}},
		{2, 2, 3, []byte{2, 1, 4, 3, 6, 5}},
		{3, 2, 3, []byte{6, 5, 4, 3, 2, 1}},
		{4, 2, 3, []byte{5, 6, 3, 4, 1, 2}},
		{5, 3, 2, []byte{1, 3, 5, 2, 4, 6}},
		{6, 3, 2, []byte{5, 3, 1, 6, 4, 2}},
		{7, 3, 2, []byte{6, 4, 2, 5, 3, 1}},
		{8, 3, 2, []byte{2, 4, 6, 1, 3, 5}},
		{9, 2, 3, []byte{1, 2, 3, 4, 5, 6}},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("orientation-%d", tc.orientation), func(t *testing.T) {
			m := tifftest.Image{
				Width: 2, Height: 3, BitsPerSample: 8, SamplesPerPixel: 1, Photometric: types.Gray,
				Orientation: tc.orientation, Pix: []byte{10, 20, 30, 40, 50, 60},
			}
			d := decoder(t, tifftest.Encode(m))
			w, h := d.RasterSize()
			require.Equal(t, tc.w, w)
			require.Equal(t, tc.h, h)
			raster := make([]byte, 4*w*h)
			require.NoError(t, d.ReadRGBAImage(raster))
			want := make([]uint32, len(tc.want))
			for i, v := range tc.want {
				want[i] = PackARGB(0xff, v*10, v*10, v*10)
			}
			require.Equal(t, want, raster_values(raster))
		})
	}
}

func TestReadRGBAImageLayouts(t *testing.T) {
	t.Run("rgb", func(t *testing.T) {
		m := tifftest.Image{
			Order: binary.BigEndian, Width: 2, Height: 1, BitsPerSample: 8, SamplesPerPixel: 3, Photometric: types.RGB,
			Pix: []byte{0x30, 0x40, 0x50, 1, 2, 3},
		}
		d := decoder(t, tifftest.Encode(m))
		raster := make([]byte, 8)
		require.NoError(t, d.ReadRGBAImage(raster))
		require.Equal(t, []uint32{0xff304050, 0xff010203}, raster_values(raster))
	})
	t.Run("rgba", func(t *testing.T) {
		m := tifftest.Image{
			Width: 1, Height: 2, BitsPerSample: 8, SamplesPerPixel: 4, Photometric: types.RGB,
			ExtraSamples: []uint32{2}, Pix: []byte{0x30, 0x40, 0x50, 0x80, 9, 8, 7, 0},
		}
		d := decoder(t, tifftest.Encode(m))
		raster := make([]byte, 8)
		require.NoError(t, d.ReadRGBAImage(raster))
		require.Equal(t, []uint32{0x80304050, 0x00090807}, raster_values(raster))
	})
	t.Run("gray16", func(t *testing.T) {
		m := tifftest.Image{
			Width: 1, Height: 1, BitsPerSample: 16, SamplesPerPixel: 1, Photometric: types.Gray,
			Pix: []byte{0x12, 0x34},
		}
		d := decoder(t, tifftest.Encode(m))
		raster := make([]byte, 4)
		require.NoError(t, d.ReadRGBAImage(raster))
		require.Equal(t, []uint32{0xff121212}, raster_values(raster))
	})
	t.Run("gray alpha", func(t *testing.T) {
		m := tifftest.Image{
			Width: 2, Height: 1, BitsPerSample: 8, SamplesPerPixel: 2, Photometric: types.Gray,
			ExtraSamples: []uint32{2}, Pix: []byte{0x40, 0x80, 0xff, 0},
		}
		d := decoder(t, tifftest.Encode(m))
		raster := make([]byte, 8)
		require.NoError(t, d.ReadRGBAImage(raster))
		require.Equal(t, []uint32{0x80404040, 0x00ffffff}, raster_values(raster))
	})
	t.Run("associated alpha", func(t *testing.T) {
		m := tifftest.Image{
			Width: 1, Height: 1, BitsPerSample: 8, SamplesPerPixel: 4, Photometric: types.RGB,
			ExtraSamples: []uint32{1}, Pix: []byte{0x40, 0x20, 0x10, 0x80},
		}
		d := decoder(t, tifftest.Encode(m))
		raster := make([]byte, 4)
		require.NoError(t, d.ReadRGBAImage(raster))
		require.Equal(t, []uint32{0x807f3f1f}, raster_values(raster))
	})
	t.Run("cmyk", func(t *testing.T) {
		m := tifftest.Image{
			Width: 2, Height: 1, BitsPerSample: 8, SamplesPerPixel: 4, Photometric: types.CMYK,
			Pix: []byte{0, 0, 0, 0, 0xff, 0, 0, 0},
		}
		d := decoder(t, tifftest.Encode(m))
		raster := make([]byte, 8)
		require.NoError(t, d.ReadRGBAImage(raster))
		require.Equal(t, []uint32{0xffffffff, 0xff00ffff}, raster_values(raster))
	})
	t.Run("wrong size", func(t *testing.T) {
		m := tifftest.Image{Width: 1, Height: 1, BitsPerSample: 8, SamplesPerPixel: 1, Photometric: types.Gray, Pix: []byte{1}}
		d := decoder(t, tifftest.Encode(m))
		require.Error(t, d.ReadRGBAImage(make([]byte, 3)))
	})
}

func TestDecodeBufferSize(t *testing.T) {
	gray := tifftest.Image{Width: 300, Height: 200, BitsPerSample: 8, SamplesPerPixel: 1, Photometric: types.Gray}
	gray.Pix = make([]byte, 300*200)
	require.Equal(t, 300, decoder(t, tifftest.Encode(gray)).DecodeBufferSize())

	cmyk := tifftest.Image{Width: 300, Height: 200, BitsPerSample: 8, SamplesPerPixel: 4, Photometric: types.CMYK}
	cmyk.Pix = make([]byte, 4*300*200)
	require.Equal(t, 4*300*200+200*4*300, decoder(t, tifftest.Encode(cmyk)).DecodeBufferSize())
}

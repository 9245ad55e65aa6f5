package tiff2png

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	v := Tiff2PNGVersion{1, 2, 3}
	require.Equal(t, "1.2.3", v.String())
	require.True(t, v.After(Tiff2PNGVersion{1, 2, 2}))
	require.True(t, v.After(Tiff2PNGVersion{0, 9, 9}))
	require.True(t, v.Before(Tiff2PNGVersion{1, 3, 0}))
	require.False(t, v.Before(v))
	require.True(t, v.Equal(Tiff2PNGVersion{1, 2, 3}))
	require.NotEmpty(t, Version.String())
}

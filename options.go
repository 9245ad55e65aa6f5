package tiff2png

import (
	"github.com/kovidgoyal/tiff2png/pngstream"
	"github.com/sirupsen/logrus"
)

type config struct {
	extraction Extraction
	level      int
	allocator  Allocator
	logger     logrus.FieldLogger
}

func default_config() config {
	return config{
		extraction: NativeScanline,
		level:      pngstream.DefaultCompression,
		allocator:  LimitedAllocator(DefaultAllocationLimit),
		logger:     logrus.StandardLogger(),
	}
}

// Option sets an optional parameter for Transcode, ConvertFile and
// ConvertAll.
type Option func(*config)

// Strategy selects how pixels are pulled from the source. The default is
// NativeScanline.
func Strategy(e Extraction) Option {
	return func(c *config) {
		c.extraction = e
	}
}

// CompressionLevel sets the zlib level of the PNG output, from
// pngstream.NoCompression to pngstream.BestCompression. Default is
// pngstream.DefaultCompression.
func CompressionLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithAllocator sets the allocator used for the raster and row buffers.
// Default is LimitedAllocator(DefaultAllocationLimit).
func WithAllocator(a Allocator) Option {
	return func(c *config) {
		if a != nil {
			c.allocator = a
		}
	}
}

// WithLogger sets the logger stage transitions are reported to, at debug
// level. Default is logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func new_config(opts []Option) config {
	cfg := default_config()
	for _, option := range opts {
		option(&cfg)
	}
	return cfg
}

package tiff2png

import (
	"fmt"
	"math"
)

var _ = fmt.Print

// Allocator provides the raster and row buffers of a conversion. Every
// buffer obtained from Alloc is passed to Free exactly once, when the
// conversion ends, whether it succeeded or not.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte)
}

// A Budget is an Allocator that can tell whether it would grant a request
// without making it. Raster decoders that need working memory of their own
// are checked against it before they start.
type Budget interface {
	Allows(size int) bool
}

// DefaultAllocationLimit is the largest single buffer the default allocator
// hands out.
const DefaultAllocationLimit = 1 << 30

type heapAllocator struct {
	limit int
}

func (a heapAllocator) Alloc(size int) ([]byte, error) {
	if size < 0 || size > a.limit {
		return nil, fmt.Errorf("refusing to allocate %d bytes, the limit is %d", size, a.limit)
	}
	return make([]byte, size), nil
}

func (heapAllocator) Free([]byte) {}

func (a heapAllocator) Allows(size int) bool { return size >= 0 && size <= a.limit }

// LimitedAllocator returns an Allocator that allocates from the Go heap and
// refuses any single request larger than limit bytes.
func LimitedAllocator(limit int) Allocator { return heapAllocator{limit: limit} }

// buffers tracks what one conversion allocated so that release can hand
// everything back in one place.
type buffers struct {
	a    Allocator
	live [][]byte
}

func (b *buffers) get(size int) ([]byte, error) {
	buf, err := b.a.Alloc(size)
	if err != nil {
		return nil, fail(AllocationFailure, err)
	}
	if len(buf) != size {
		b.a.Free(buf)
		return nil, failf(AllocationFailure, "allocator returned %d bytes instead of %d", len(buf), size)
	}
	b.live = append(b.live, buf)
	return buf, nil
}

func (b *buffers) release() {
	for _, buf := range b.live {
		b.a.Free(buf)
	}
	b.live = nil
}

// raster_size is the number of bytes of a packed ARGB raster of the given
// dimensions.
func raster_size(width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, failf(InvalidInput, "invalid raster size: %dx%d", width, height)
	}
	if width > math.MaxInt/4/height {
		return 0, failf(AllocationFailure, "raster of %dx%d pixels is too large", width, height)
	}
	return width * height * 4, nil
}

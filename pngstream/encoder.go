// Package pngstream writes PNG images one scanline at a time, without ever
// holding the whole image in memory.
//
// Usage is a fixed sequence: NewEncoder, WriteHeader once, WriteRow exactly
// Height times, then Close. Any failure is reported as an *Error matching
// ErrInternal and is sticky: every later call returns the same error.
package pngstream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/kovidgoyal/tiff2png/types"
)

var _ = fmt.Print

// ErrInternal is matched by every error the Encoder returns.
var ErrInternal = errors.New("pngstream: internal error")

// Error is an unrecoverable encoder failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string        { return fmt.Sprintf("pngstream: %s: %s", e.Op, e.Err) }
func (e *Error) Unwrap() error        { return e.Err }
func (e *Error) Is(target error) bool { return target == ErrInternal }

const pngHeader = "\x89PNG\r\n\x1a\n"

// Compression levels, the same values zlib uses.
const (
	DefaultCompression = zlib.DefaultCompression
	NoCompression      = zlib.NoCompression
	BestSpeed          = zlib.BestSpeed
	BestCompression    = zlib.BestCompression
)

// idatChunkSize bounds the zlib data carried by a single IDAT chunk.
const idatChunkSize = 1 << 15

// Header describes the image. Compression, filter method and interlacing
// are always the PNG defaults: deflate, adaptive filtering, no interlace.
type Header struct {
	Width, Height int
	BitDepth      int
	ColorType     types.ColorType
}

func (h Header) Layout() types.Layout {
	return types.Layout{ColorType: h.ColorType, BitDepth: h.BitDepth}
}

func (h Header) validate() error {
	if h.Width <= 0 || h.Height <= 0 || int64(h.Width) > 1<<31-1 || int64(h.Height) > 1<<31-1 {
		return fmt.Errorf("invalid image size: %dx%d", h.Width, h.Height)
	}
	if h.ColorType.Channels() == 0 {
		return fmt.Errorf("invalid color type: %d", h.ColorType)
	}
	if h.BitDepth != 8 && h.BitDepth != 16 {
		return fmt.Errorf("invalid bit depth %d for color type %s", h.BitDepth, h.ColorType)
	}
	return nil
}

type config struct {
	level int
}

// Option sets an optional parameter for NewEncoder.
type Option func(*config)

// CompressionLevel sets the zlib compression level. The default is
// DefaultCompression. NoCompression also disables row filtering.
func CompressionLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}

type state int

const (
	stateInit state = iota
	stateHeaderWritten
	stateFinished
	stateFailed
)

// Encoder is a streaming PNG writer. It is not safe for concurrent use.
type Encoder struct {
	w      io.Writer
	level  int
	header Header
	state  state
	err    error
	rows   int

	zw  *zlib.Writer
	bw  *bufio.Writer
	bpp int
	// cr holds the current row once for every filter type, with the filter
	// type byte in front. pr is the previous unfiltered row.
	cr  [nFilter][]byte
	pr  []byte
	buf [8]byte
}

// NewEncoder returns an Encoder that writes to w.
func NewEncoder(w io.Writer, opts ...Option) (*Encoder, error) {
	cfg := config{level: DefaultCompression}
	for _, option := range opts {
		option(&cfg)
	}
	if w == nil {
		return nil, &Error{Op: "init", Err: errors.New("nil writer")}
	}
	e := &Encoder{w: w, level: cfg.level}
	e.bw = bufio.NewWriterSize(idatWriter{e}, idatChunkSize)
	zw, err := zlib.NewWriterLevel(e.bw, cfg.level)
	if err != nil {
		return nil, &Error{Op: "init", Err: err}
	}
	e.zw = zw
	return e, nil
}

func (e *Encoder) fail(op string, err error) error {
	if e.err == nil {
		e.err = &Error{Op: op, Err: err}
	}
	e.state = stateFailed
	return e.err
}

// trap converts a panic inside op into a sticky error, so nothing unwinds
// past the Encoder.
func (e *Encoder) trap(op string, err *error) {
	if r := recover(); r != nil {
		*err = e.fail(op, fmt.Errorf("panic: %v", r))
	}
}

func (e *Encoder) check(op string, want state) error {
	if e.state == stateFailed {
		return e.err
	}
	if e.state != want {
		return e.fail(op, fmt.Errorf("called in the wrong order (state %d)", e.state))
	}
	return nil
}

func (e *Encoder) writeChunk(name string, data []byte) error {
	binary.BigEndian.PutUint32(e.buf[:4], uint32(len(data)))
	copy(e.buf[4:8], name)
	crc := crc32.NewIEEE()
	crc.Write(e.buf[4:8])
	crc.Write(data)
	if _, err := e.w.Write(e.buf[:8]); err != nil {
		return err
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(e.buf[:4], crc.Sum32())
	_, err := e.w.Write(e.buf[:4])
	return err
}

type idatWriter struct{ e *Encoder }

// Write splits b into IDAT chunks of at most idatChunkSize bytes. bufio
// hands large writes straight through when its buffer is empty.
func (w idatWriter) Write(b []byte) (n int, err error) {
	for len(b) > 0 {
		c := b[:min(len(b), idatChunkSize)]
		if err = w.e.writeChunk("IDAT", c); err != nil {
			return n, err
		}
		n += len(c)
		b = b[len(c):]
	}
	return n, nil
}

// WriteHeader writes the PNG signature and the IHDR chunk.
func (e *Encoder) WriteHeader(h Header) (err error) {
	const op = "write header"
	defer e.trap(op, &err)
	if err = e.check(op, stateInit); err != nil {
		return err
	}
	if err = h.validate(); err != nil {
		return e.fail(op, err)
	}
	if _, err = io.WriteString(e.w, pngHeader); err != nil {
		return e.fail(op, err)
	}
	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(h.Width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(h.Height))
	ihdr[8] = uint8(h.BitDepth)
	ihdr[9] = uint8(h.ColorType)
	// compression, filter and interlace methods are all 0
	if err = e.writeChunk("IHDR", ihdr[:]); err != nil {
		return e.fail(op, err)
	}
	e.header = h
	e.bpp = h.Layout().BytesPerPixel()
	sz := 1 + h.Layout().RowBytes(h.Width)
	for i := range e.cr {
		e.cr[i] = make([]uint8, sz)
		e.cr[i][0] = uint8(i)
	}
	e.pr = make([]uint8, sz)
	e.state = stateHeaderWritten
	return nil
}

// RowBytes is the length WriteRow expects, valid after WriteHeader.
func (e *Encoder) RowBytes() int { return len(e.pr) - 1 }

// WriteRow filters, compresses and writes one scanline. Multi-byte samples
// must be big-endian. row is not retained after WriteRow returns.
func (e *Encoder) WriteRow(row []byte) (err error) {
	const op = "write row"
	defer e.trap(op, &err)
	if err = e.check(op, stateHeaderWritten); err != nil {
		return err
	}
	if e.rows >= e.header.Height {
		return e.fail(op, fmt.Errorf("too many rows, image height is %d", e.header.Height))
	}
	if len(row) != e.RowBytes() {
		return e.fail(op, fmt.Errorf("row %d has %d bytes, want %d", e.rows, len(row), e.RowBytes()))
	}
	copy(e.cr[0][1:], row)
	f := ftNone
	if e.level != NoCompression {
		f = filter(&e.cr, e.pr, e.bpp)
	}
	if _, err = e.zw.Write(e.cr[f]); err != nil {
		return e.fail(op, err)
	}
	e.pr, e.cr[0] = e.cr[0], e.pr
	e.rows++
	return nil
}

// Close flushes the compressed stream and writes the IEND chunk. It fails
// if fewer than Height rows were written. Close does not close the
// underlying writer.
func (e *Encoder) Close() (err error) {
	const op = "finish"
	defer e.trap(op, &err)
	if err = e.check(op, stateHeaderWritten); err != nil {
		return err
	}
	if e.rows != e.header.Height {
		return e.fail(op, fmt.Errorf("only %d of %d rows were written", e.rows, e.header.Height))
	}
	if err = e.zw.Close(); err != nil {
		return e.fail(op, err)
	}
	if err = e.bw.Flush(); err != nil {
		return e.fail(op, err)
	}
	if err = e.writeChunk("IEND", nil); err != nil {
		return e.fail(op, err)
	}
	e.state = stateFinished
	return nil
}

package tiff2png

import (
	"fmt"
)

var _ = fmt.Print

// ErrorKind classifies conversion failures. Every ErrorKind is itself an
// error, so errors.Is(err, RowReadFailure) reports whether err, or any error
// it wraps, is a failure of that kind.
type ErrorKind int

const (
	InvalidInput ErrorKind = iota + 1
	MissingProperty
	UnsupportedColorModel
	UnsupportedBitDepth
	AllocationFailure
	RowReadFailure
	OutputOpenFailure
	EncoderInitFailure
	EncoderInternalError
)

var kindNames = map[ErrorKind]string{
	InvalidInput:          "invalid input",
	MissingProperty:       "missing image property",
	UnsupportedColorModel: "unsupported color model",
	UnsupportedBitDepth:   "unsupported bit depth",
	AllocationFailure:     "buffer allocation failed",
	RowReadFailure:        "failed to read row",
	OutputOpenFailure:     "failed to open output",
	EncoderInitFailure:    "failed to create PNG encoder",
	EncoderInternalError:  "PNG encoder error",
}

func (k ErrorKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) Error() string { return "tiff2png: " + k.String() }

// Error is the single error value a failed conversion produces.
type Error struct {
	Kind ErrorKind
	Row  int    // the failing row, for RowReadFailure
	Path string // the input file, when converting files
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == RowReadFailure {
		msg = fmt.Sprintf("%s %d", msg, e.Row)
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

func fail(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func failf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func row_failure(y int, err error) *Error {
	return &Error{Kind: RowReadFailure, Row: y, Err: err}
}

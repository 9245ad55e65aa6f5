package tiff2png

import (
	"fmt"
	"io"

	"github.com/kovidgoyal/tiff2png/pngstream"
	"github.com/sirupsen/logrus"
)

var _ = fmt.Print

// Transcode writes src to w as a PNG image. Every failure is reported as a
// single *Error and leaves no buffer allocated. w may have received a
// partial PNG stream when Transcode fails.
func Transcode(src Source, w io.Writer, opts ...Option) error {
	if w == nil {
		return failf(InvalidInput, "no output")
	}
	cfg := new_config(opts)
	return transcode(src, func() (io.Writer, error) { return w, nil }, &cfg, cfg.logger)
}

// transcode runs one conversion. The output is only opened once the image
// is known to be convertible, and failures from open are reported as
// OutputOpenFailure.
func transcode(src Source, open func() (io.Writer, error), cfg *config, log logrus.FieldLogger) error {
	d, err := ReadDescriptor(src)
	if err != nil {
		return err
	}
	bufs := buffers{a: cfg.allocator}
	defer bufs.release()

	rows, err := new_row_source(src, d, cfg.extraction, &bufs)
	if err != nil {
		return err
	}
	defer rows.Close()
	layout := rows.Layout()
	width, height := rows.Size()
	log = log.WithFields(logrus.Fields{
		"width": width, "height": height, "layout": layout.String(), "strategy": cfg.extraction.String(),
	})
	log.Debug("selected output layout")

	out, err := bufs.get(layout.RowBytes(width))
	if err != nil {
		return err
	}
	tr, err := NewTranscoder(layout, width, out)
	if err != nil {
		return fail(InvalidInput, err)
	}

	w, err := open()
	if err != nil {
		return fail(OutputOpenFailure, err)
	}
	enc, err := pngstream.NewEncoder(w, pngstream.CompressionLevel(cfg.level))
	if err != nil {
		return fail(EncoderInitFailure, err)
	}
	if err = enc.WriteHeader(pngstream.Header{Width: width, Height: height, BitDepth: layout.BitDepth, ColorType: layout.ColorType}); err != nil {
		return fail(EncoderInternalError, err)
	}
	log.Debug("wrote header")

	for y := range height {
		sr, err := rows.Row(y)
		if err != nil {
			log.WithError(err).Debug("reading row failed")
			return err
		}
		row, err := tr.Transcode(sr)
		if err != nil {
			return err
		}
		if err = enc.WriteRow(row); err != nil {
			return fail(EncoderInternalError, err)
		}
	}
	if err = enc.Close(); err != nil {
		return fail(EncoderInternalError, err)
	}
	log.Debug("finished")
	return nil
}

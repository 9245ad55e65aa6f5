package tiff2png

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kovidgoyal/go-parallel"
	"github.com/kovidgoyal/tiff2png/tiffsrc"
)

var _ = fmt.Print

// Image is a TIFF opened for conversion, supporting both extraction
// strategies.
type Image interface {
	Source
	ScanlineReader
	RasterReader
	io.Closer
}

type fileSystem interface {
	Create(string) (io.WriteCloser, error)
	Open(string) (Image, error)
	Remove(string) error
}

type localFS struct{}

func (localFS) Create(name string) (io.WriteCloser, error) { return os.Create(name) }
func (localFS) Open(name string) (Image, error)            { return tiffsrc.Open(name) }
func (localFS) Remove(name string) error                   { return os.Remove(name) }

var fs fileSystem = localFS{}

// OutputPath derives the PNG file name for a TIFF file name by replacing
// its extension with .png, or appending .png when it has none.
//
// Examples:
//
//	OutputPath("scans/page.tif") // "scans/page.png"
//	OutputPath("archive.d/raw")  // "archive.d/raw.png"
func OutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".png"
}

// ConvertFile converts the TIFF file at path to a PNG file next to it, named
// by OutputPath, and returns the name of the written file. When the
// conversion fails no output file is left behind.
func ConvertFile(path string, opts ...Option) (output string, err error) {
	cfg := new_config(opts)
	log := cfg.logger.WithField("path", path)
	defer func() {
		var e *Error
		if errors.As(err, &e) && e.Path == "" {
			e.Path = path
		}
	}()
	output = OutputPath(path)
	if output == path {
		return "", failf(InvalidInput, "the output would overwrite the input")
	}
	img, err := fs.Open(path)
	if err != nil {
		return "", fail(InvalidInput, err)
	}
	defer img.Close()

	var file io.WriteCloser
	var bw *bufio.Writer
	open := func() (io.Writer, error) {
		f, err := fs.Create(output)
		if err != nil {
			return nil, err
		}
		file, bw = f, bufio.NewWriter(f)
		log.WithField("output", output).Debug("created output")
		return bw, nil
	}
	err = transcode(img, open, &cfg, log)
	if file != nil {
		if err == nil {
			err = bw.Flush()
		}
		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			if _, ok := err.(*Error); !ok {
				err = fail(EncoderInternalError, err)
			}
			if rerr := fs.Remove(output); rerr != nil {
				log.WithError(rerr).Warn("failed to remove partial output")
			}
		}
	}
	if err != nil {
		return "", err
	}
	return output, nil
}

// Result is the outcome of converting one file in ConvertAll.
type Result struct {
	Input, Output string
	Err           error
}

// ConvertAll converts every file in paths, using up to jobs files in
// parallel, zero meaning one per CPU. One failure does not stop the other
// conversions. Results are in the order of paths. Once ctx is done no
// further conversions are started and the remaining results carry
// ctx.Err().
func ConvertAll(ctx context.Context, paths []string, jobs int, opts ...Option) []Result {
	ans := make([]Result, len(paths))
	done := make([]bool, len(paths))
	f := func(start, limit int) {
		for i := start; i < limit; i++ {
			ans[i].Input = paths[i]
			if err := ctx.Err(); err != nil {
				ans[i].Err = err
			} else {
				ans[i].Output, ans[i].Err = ConvertFile(paths[i], opts...)
			}
			done[i] = true
		}
	}
	if jobs == 1 || len(paths) < 2 {
		f(0, len(paths))
		return ans
	}
	if err := parallel.Run_in_parallel_over_range(max(0, jobs), f, 0, len(paths)); err != nil {
		// a worker panicked, whatever it had not finished is reported as failed
		new_config(opts).logger.WithError(err).Debug("batch worker failed")
		for i, d := range done {
			if !d {
				ans[i] = Result{Input: paths[i], Err: err}
			}
		}
	}
	return ans
}

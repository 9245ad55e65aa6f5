package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/kovidgoyal/tiff2png"
	"github.com/kovidgoyal/tiff2png/pngstream"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var _ = fmt.Print

var errConversionFailed = errors.New("some files could not be converted")

// failure_message is "<path>: <error>". Conversion errors already start
// with the path, others such as cancellation get it prepended.
func failure_message(r tiff2png.Result) string {
	var e *tiff2png.Error
	if errors.As(r.Err, &e) && e.Path != "" {
		return r.Err.Error()
	}
	return r.Input + ": " + r.Err.Error()
}

func new_command(stdout, stderr io.Writer) *cobra.Command {
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.WarnLevel)

	cmd := &cobra.Command{
		Use:           "tiff2png [flags] TIFF_FILE...",
		Short:         "Convert TIFF images to PNG",
		Long:          "Convert TIFF images to PNG. Each input is written next to itself with its extension replaced by .png.",
		Version:       tiff2png.Version.String(),
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			raster, _ := cmd.Flags().GetBool("raster")
			jobs, _ := cmd.Flags().GetInt("jobs")
			level, _ := cmd.Flags().GetInt("level")
			verbose, _ := cmd.Flags().GetBool("verbose")
			debug, _ := cmd.Flags().GetBool("debug")
			switch {
			case debug:
				log.SetLevel(logrus.DebugLevel)
			case verbose:
				log.SetLevel(logrus.InfoLevel)
			}
			if jobs < 0 {
				return fmt.Errorf("invalid number of jobs: %d", jobs)
			}
			opts := []tiff2png.Option{tiff2png.CompressionLevel(level), tiff2png.WithLogger(log)}
			if raster {
				opts = append(opts, tiff2png.Strategy(tiff2png.WholeRaster))
			}
			failed := false
			for _, r := range tiff2png.ConvertAll(cmd.Context(), args, jobs, opts...) {
				if r.Err != nil {
					failed = true
					fmt.Fprintln(stderr, "Failed to convert:", failure_message(r))
					continue
				}
				log.WithField("output", r.Output).Infof("converted %s", r.Input)
			}
			if failed {
				return errConversionFailed
			}
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().Bool("raster", false, "Decode each image into an 8-bit RGBA raster first, applying its orientation")
	cmd.Flags().IntP("jobs", "j", 1, "Number of files to convert in parallel, 0 for one per CPU")
	cmd.Flags().IntP("level", "l", pngstream.DefaultCompression, fmt.Sprintf("zlib compression level, %d to %d", pngstream.NoCompression, pngstream.BestCompression))
	cmd.Flags().BoolP("verbose", "v", false, "Report every converted file")
	cmd.Flags().Bool("debug", false, "Log every stage of every conversion")
	return cmd
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := new_command(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errConversionFailed) {
			fmt.Fprintln(stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

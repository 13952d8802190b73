package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"BandView/internal/domain/models"
	"BandView/internal/repository"
	"BandView/internal/services/bollinger"
)

type options struct {
	file       string
	length     int
	multiplier float64
	offset     int
	source     string
	format     string
	tail       int
}

func newRootCmd() *cobra.Command {
	defaults := models.DefaultSettings().Inputs
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "bandcalc",
		Short: "compute Bollinger Bands over an OHLCV JSON file",

		// SilenceUsage is an option to silence usage when an error occurs.
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.file, "file", "data/ohlcv.json", "OHLCV JSON array, ascending by time")
	f.IntVar(&opts.length, "length", defaults.Length, "window length in bars")
	f.Float64Var(&opts.multiplier, "multiplier", defaults.Multiplier, "standard deviation multiplier")
	f.IntVar(&opts.offset, "offset", defaults.Offset, "shift bands by this many bars")
	f.StringVar(&opts.source, "source", string(defaults.Source), fmt.Sprintf("price source %v", bollinger.Sources()))
	f.StringVar(&opts.format, "format", formatTable, "output format: table or json")
	f.IntVar(&opts.tail, "tail", 0, "print only the last N bars (0 prints all)")
	return cmd
}

func run(ctx context.Context, opts *options, w io.Writer) error {
	if opts.format != formatTable && opts.format != formatJSON {
		return fmt.Errorf("unknown format %q, want table or json", opts.format)
	}
	in := models.BollingerInputs{
		Length:     opts.length,
		Multiplier: opts.multiplier,
		Offset:     opts.offset,
		Source:     models.Source(opts.source),
	}
	if err := bollinger.Validate(in); err != nil {
		return err
	}

	series, err := repository.NewFileSeriesStore(opts.file).Series(ctx, "", "")
	if err != nil {
		return err
	}
	points, err := bollinger.Compute(series, in)
	if err != nil {
		return err
	}
	return render(w, opts.format, series, points, opts.tail)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

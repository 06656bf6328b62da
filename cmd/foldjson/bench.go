package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/danpilch/foldjson/pkg/benchmark"
	"github.com/danpilch/foldjson/pkg/flamegraph"
)

func (a *app) benchCommand() *cobra.Command {
	opts := benchmark.DefaultOptions()
	read := flamegraph.DefaultReadOptions()
	var inputFormat string

	cmd := &cobra.Command{
		Use:   "bench FILE...",
		Short: "Measure tree building and JSON encoding on the given inputs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputFormat != "" {
				in, err := flamegraph.ParseInputFormat(inputFormat)
				if err != nil {
					return err
				}
				read.Format = in
			}

			for _, path := range args {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				file, err := os.Open(path)
				if err != nil {
					return errors.Wrap(err, "cannot open input")
				}
				stacks, format, err := flamegraph.ReadStacks(file, read)
				file.Close()
				if err != nil {
					return errors.Wrapf(err, "reading %s", path)
				}
				flamegraph.SortStacks(stacks)
				a.logger.WithField("input", path).WithField("format", format).Debug("Benchmarking")

				res, err := benchmark.Run(stacks, opts)
				if err != nil {
					return errors.Wrapf(err, "benchmarking %s", path)
				}
				benchmark.RenderResults(a.stdout, path, res)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&opts.Iterations, "iterations", "n", opts.Iterations, "Measured iterations per input")
	fl.IntVar(&opts.Warmup, "warmup", opts.Warmup, "Unmeasured iterations before measuring")
	fl.StringVarP(&inputFormat, "input-format", "i", string(read.Format), "Input format: auto, collapsed, perf, dtrace, sample or pprof")
	fl.IntVar(&read.SampleIndex, "sample-index", read.SampleIndex, "pprof sample value index, negative for the last one")
	return cmd
}

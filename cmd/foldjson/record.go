package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/foldjson/pkg/flamegraph"
	"github.com/danpilch/foldjson/pkg/output"
	"github.com/danpilch/foldjson/pkg/pipeline"
)

type recordFlags struct {
	convertFlags
	duration  time.Duration
	frequency int
	pid       int
	folded    string
}

func (a *app) recordCommand() *cobra.Command {
	f := recordFlags{}
	defaults := flamegraph.DefaultCaptureOptions()

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Sample stacks with perf or dtrace and render them",
		Long: `record samples on-CPU stacks with perf on Linux, or dtrace and sample on macOS,
then folds and renders them like the root command. Capturing usually needs root
or a relaxed perf_event_paranoid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.record(cmd.Context(), f)
		},
	}

	fl := cmd.Flags()
	addRenderFlags(fl, &f.convertFlags, pipeline.DefaultOptions())
	fl.StringVarP(&f.output, "output", "o", "", "Output file (- for stdout)")
	fl.DurationVar(&f.duration, "duration", defaults.Duration, "How long to sample")
	fl.IntVar(&f.frequency, "frequency", defaults.Frequency, "Sampling frequency in Hz")
	fl.IntVarP(&f.pid, "pid", "p", 0, "Process to sample, 0 for the whole system")
	fl.StringVar(&f.folded, "save-folded", "", "Also write the folded stacks to this file")
	return cmd
}

func (a *app) record(ctx context.Context, f recordFlags) error {
	opts, err := f.options()
	if err != nil {
		return err
	}
	out := f.output
	if out == "" {
		out = pipeline.StdStream
	}
	if out == pipeline.StdStream && !opts.Format.Terminal() && a.isTTY() {
		return errors.Errorf("refusing to write %s to a terminal, use --output", opts.Format)
	}

	a.logger.WithFields(logrus.Fields{
		"duration":  f.duration,
		"frequency": f.frequency,
		"pid":       f.pid,
	}).Info("Recording")

	res, err := flamegraph.Capture(ctx, flamegraph.CaptureOptions{
		Duration:  f.duration,
		Frequency: f.frequency,
		PID:       f.pid,
	})
	if err != nil {
		return err
	}
	a.logger.WithFields(logrus.Fields{
		"tool":    res.Tool,
		"samples": humanize.Comma(int64(res.SampleCount)),
		"stacks":  len(res.Stacks),
	}).Info("Capture finished")

	if f.folded != "" {
		if err := writeFile(f.folded, func(w io.Writer) error {
			return flamegraph.WriteCollapsed(w, res.Stacks)
		}); err != nil {
			return err
		}
	}

	tree := flamegraph.BuildStacks(res.Stacks)
	render := func(w io.Writer) error {
		fmtr := output.NewFormatter(opts.Format, w)
		fmtr.SetTitle(opts.Title)
		fmtr.SetTopN(opts.TopN)
		fmtr.SetSVGOptions(opts.SVG)
		return fmtr.Render(tree)
	}
	if out == pipeline.StdStream {
		return render(a.stdout)
	}
	return writeFile(out, render)
}

func writeFile(path string, fn func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create output")
	}
	if err := fn(file); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return errors.Wrapf(file.Close(), "closing %s", path)
}

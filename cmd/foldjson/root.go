package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/danpilch/foldjson/pkg/debug"
	"github.com/danpilch/foldjson/pkg/flamegraph"
	"github.com/danpilch/foldjson/pkg/output"
	"github.com/danpilch/foldjson/pkg/pipeline"
)

var version = "dev"

// exitError carries a non-default exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	isTTY  func() bool

	log       logOptions
	logger    *logrus.Logger
	pprofAddr string
	stopPprof func()
}

func run(ctx context.Context, args []string) (int, error) {
	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		isTTY: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		},
	}
	return a.execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) (int, error) {
	cmd := a.rootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	err := cmd.ExecuteContext(ctx)
	if a.stopPprof != nil {
		a.stopPprof()
	}

	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code, nil
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}

type convertFlags struct {
	format      string
	inputFormat string
	output      string
	outputDir   string
	title       string
	sampleIndex int
	maxLineSize int
	noSort      bool
	jobs        int
	topN        int
	width       int
	colors      string
	timing      bool
}

func (a *app) rootCommand() *cobra.Command {
	f := convertFlags{}
	defaults := pipeline.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "foldjson [flags] [FILE...]",
		Short: "Convert folded stacks into flame graph JSON, HTML, SVG or text reports",
		Long: `foldjson reads folded stacks ("frame1;frame2;frame3 count" per line), perf script,
dtrace, sample or pprof output, builds the aggregated call tree and renders it.

With no FILE, or when FILE is -, standard input is read. A single input is written
to standard output unless --output or --output-dir is given; several inputs need
--output-dir and are processed concurrently.

Records are sorted frame by frame before building, so siblings appear in frame
name order rather than input order; --no-sort keeps the input order.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(a.stderr, a.log)
			if err != nil {
				return err
			}
			a.logger = logger
			if a.pprofAddr != "" {
				addr, stop, err := debug.StartPprofServer(a.pprofAddr, logger)
				if err != nil {
					return err
				}
				logger.WithField("addr", addr).Info("Serving pprof")
				a.stopPprof = stop
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(cmd.Context(), f, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&a.log.verbose, "verbose", "v", false, "Debug logging")
	pf.BoolVarP(&a.log.quiet, "quiet", "q", false, "Only log errors")
	pf.StringVar(&a.log.format, "log-format", "text", "Log format: text or json")
	pf.StringVar(&a.pprofAddr, "pprof", "", "Serve net/http/pprof on this address while running")

	fl := cmd.Flags()
	addRenderFlags(fl, &f, defaults)
	fl.StringVarP(&f.inputFormat, "input-format", "i", string(defaults.Read.Format), "Input format: auto, collapsed, perf, dtrace, sample or pprof")
	fl.StringVarP(&f.output, "output", "o", "", "Output file for a single input (- for stdout)")
	fl.StringVarP(&f.outputDir, "output-dir", "d", "", "Directory for outputs, named after each input")
	fl.IntVar(&f.sampleIndex, "sample-index", defaults.Read.SampleIndex, "pprof sample value index, negative for the last one")
	fl.IntVar(&f.maxLineSize, "max-line-size", defaults.Read.MaxLineSize, "Longest accepted input line in bytes")
	fl.BoolVar(&f.noSort, "no-sort", false, "Build in input order; input must already be grouped by shared prefix. By default records are sorted frame by frame, so sibling order follows frame names, not the input")
	fl.IntVarP(&f.jobs, "jobs", "j", defaults.Jobs, "Inputs processed concurrently")
	fl.BoolVar(&f.timing, "timing", false, "Print per-stage timings to stderr")

	cmd.AddCommand(a.recordCommand(), a.benchCommand(), a.baselineCommand(), versionCommand())
	return cmd
}

func addRenderFlags(fl *pflag.FlagSet, f *convertFlags, defaults pipeline.Options) {
	fl.StringVarP(&f.format, "format", "f", string(defaults.Format), "Output format: json, html, svg, tree, table or tsv")
	fl.StringVarP(&f.title, "title", "t", "", "Title of html, svg and table output")
	fl.IntVar(&f.topN, "top", defaults.TopN, "Frames listed by the table format")
	fl.IntVar(&f.width, "width", defaults.SVG.Width, "SVG width in pixels")
	fl.StringVar(&f.colors, "colors", defaults.SVG.ColorScheme, "SVG color scheme: hot, cold or mem")
}

func (f convertFlags) options() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	format, err := output.ParseFormat(f.format)
	if err != nil {
		return opts, err
	}
	opts.Format = format
	opts.Title = f.title
	opts.TopN = f.topN
	opts.SVG.Width = f.width
	opts.SVG.ColorScheme = f.colors

	if f.inputFormat != "" {
		in, err := flamegraph.ParseInputFormat(f.inputFormat)
		if err != nil {
			return opts, err
		}
		opts.Read.Format = in
	}
	opts.Read.SampleIndex = f.sampleIndex
	opts.Read.MaxLineSize = f.maxLineSize
	opts.Sort = !f.noSort
	if f.jobs > 0 {
		opts.Jobs = f.jobs
	}
	return opts, nil
}

func (a *app) jobs(f convertFlags, format output.Format, args []string) ([]pipeline.Job, error) {
	if len(args) == 0 {
		args = []string{pipeline.StdStream}
	}
	if f.output != "" && f.outputDir != "" {
		return nil, errors.New("--output and --output-dir are mutually exclusive")
	}
	if len(args) > 1 && f.outputDir == "" {
		return nil, errors.New("several inputs need --output-dir")
	}

	if f.outputDir != "" {
		if err := os.MkdirAll(f.outputDir, 0755); err != nil {
			return nil, errors.Wrap(err, "cannot create output directory")
		}
	}

	jobs := make([]pipeline.Job, 0, len(args))
	for _, in := range args {
		out := f.output
		if f.outputDir != "" {
			out = pipeline.OutputPath(in, f.outputDir, format)
		}
		if out == "" {
			out = pipeline.StdStream
		}
		jobs = append(jobs, pipeline.Job{Input: in, Output: out})
	}

	if jobs[0].Output == pipeline.StdStream && !format.Terminal() && a.isTTY() {
		return nil, errors.Errorf("refusing to write %s to a terminal, use --output", format)
	}
	return jobs, nil
}

func (a *app) convert(ctx context.Context, f convertFlags, args []string) error {
	opts, err := f.options()
	if err != nil {
		return err
	}
	jobs, err := a.jobs(f, opts.Format, args)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(opts, a.logger)
	runner.SetStdio(a.stdin, a.stdout)
	results := runner.RunAll(ctx, jobs)

	for _, r := range results {
		if f.timing {
			debug.TimingReport(a.stderr, r.Job.Name(), r.Timings)
		}
		if r.Err != nil {
			a.logger.WithField("input", r.Job.Name()).Error(r.Err)
		}
	}

	if code := pipeline.ExitCode(results); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

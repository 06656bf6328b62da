package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/danpilch/foldjson/pkg/debug"
	"github.com/danpilch/foldjson/pkg/flamegraph"
	"github.com/danpilch/foldjson/pkg/output"
)

// Runner converts folded stack inputs into flame graph outputs. Every job
// owns its own tree; nothing is shared between concurrent jobs.
type Runner struct {
	opts   Options
	logger *logrus.Logger
	stdin  io.Reader
	stdout io.Writer
}

// NewRunner creates a new job runner.
func NewRunner(opts Options, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	return &Runner{
		opts:   opts,
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// SetStdio replaces the streams used for "-" inputs and outputs.
func (r *Runner) SetStdio(in io.Reader, out io.Writer) {
	r.stdin = in
	r.stdout = out
}

// RunAll executes all jobs, at most Options.Jobs at a time, and returns
// their results in job order. A failing job does not stop the others.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.opts.Jobs)

	// stdout is shared by every job writing to "-"
	var stdoutMu sync.Mutex

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = r.run(ctx, job, &stdoutMu)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// RunOne executes a single job.
func (r *Runner) RunOne(ctx context.Context, job Job) Result {
	var mu sync.Mutex
	return r.run(ctx, job, &mu)
}

func (r *Runner) run(ctx context.Context, job Job, stdoutMu *sync.Mutex) Result {
	log := r.logger.WithField("input", job.Name())
	log.Debug("Running job")

	res := r.process(ctx, job, stdoutMu)
	res.Job = job
	switch {
	case res.Err == nil:
		res.Status = StatusOK
		log.WithFields(logrus.Fields{
			"format":   res.Format,
			"records":  res.Records,
			"samples":  res.Summary.Total,
			"nodes":    res.Summary.Nodes,
			"duration": res.Duration,
		}).Info("Job finished")
	case errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded):
		res.Status = StatusCanceled
		log.WithError(res.Err).Warn("Job canceled")
	default:
		res.Status = StatusError
		log.WithError(res.Err).Warn("Job failed")
	}
	return res
}

func (r *Runner) process(ctx context.Context, job Job, stdoutMu *sync.Mutex) (res Result) {
	sw := debug.NewStopwatch()
	defer func() {
		res.Timings = sw.Timings()
		res.Duration = sw.Total()
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	in, closeIn, err := r.openInput(job.Input)
	if err != nil {
		res.Err = err
		return res
	}
	stacks, format, err := flamegraph.ReadStacks(in, r.opts.Read)
	closeIn()
	if err != nil {
		res.Err = errors.Wrapf(err, "reading %s", job.Name())
		return res
	}
	res.Format = format
	res.Records = len(stacks)
	sw.Lap("read")

	if r.opts.Sort {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		flamegraph.SortStacks(stacks)
		sw.Lap("sort")
	}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	tree := flamegraph.BuildStacks(stacks)
	res.Summary = flamegraph.Summarize(tree, r.opts.TopN)
	sw.Lap("build")

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if err := r.writeOutput(job.Output, tree, stdoutMu); err != nil {
		res.Err = err
		return res
	}
	sw.Lap("render")

	return res
}

func (r *Runner) openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == StdStream {
		return r.stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening input")
	}
	return f, func() { f.Close() }, nil
}

func (r *Runner) formatter(w io.Writer) *output.Formatter {
	f := output.NewFormatter(r.opts.Format, w)
	f.SetSVGOptions(r.opts.SVG)
	f.SetTitle(r.opts.Title)
	f.SetTopN(r.opts.TopN)
	return f
}

func (r *Runner) writeOutput(path string, tree *flamegraph.Tree, stdoutMu *sync.Mutex) error {
	if path == "" || path == StdStream {
		stdoutMu.Lock()
		defer stdoutMu.Unlock()
		return r.formatter(r.stdout).Render(tree)
	}

	// rendered beside path, then renamed into place
	f, err := os.CreateTemp(filepath.Dir(path), ".foldjson-*")
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	tmp := f.Name()
	if err := r.formatter(f).Render(tree); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "rendering %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "closing output")
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "setting output mode")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "writing output")
	}
	return nil
}

// Package pipeline runs read, sort, build and render jobs over folded stack
// inputs.
package pipeline

import (
	"time"

	"github.com/danpilch/foldjson/pkg/debug"
	"github.com/danpilch/foldjson/pkg/flamegraph"
	"github.com/danpilch/foldjson/pkg/output"
)

// Status represents the outcome of a job.
type Status string

const (
	StatusOK       Status = "ok"
	StatusError    Status = "error"
	StatusCanceled Status = "canceled"
)

// StdStream names standard input or output in a Job.
const StdStream = "-"

// Job converts one input into one output.
type Job struct {
	Input  string // path, or "-" for stdin
	Output string // path, or "-" for stdout
}

// Name returns a label for logs and reports.
func (j Job) Name() string {
	if j.Input == StdStream || j.Input == "" {
		return "stdin"
	}
	return j.Input
}

// Result is the outcome of a single job.
type Result struct {
	Job      Job
	Status   Status
	Format   flamegraph.InputFormat
	Records  int
	Summary  flamegraph.Summary
	Timings  []debug.StageTiming
	Duration time.Duration
	Err      error
}

// Options configures a Runner.
type Options struct {
	Read   flamegraph.ReadOptions
	Format output.Format
	Title  string
	SVG    flamegraph.SVGOptions
	TopN   int
	// Sort orders records by frames before building. Without it the input
	// must already be grouped by shared prefix.
	Sort bool
	Jobs int
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Read:   flamegraph.DefaultReadOptions(),
		Format: output.FormatJSON,
		SVG:    flamegraph.DefaultSVGOptions(),
		TopN:   10,
		Sort:   true,
		Jobs:   4,
	}
}

// Summary counts job outcomes.
type Summary struct {
	Total    int
	OK       int
	Errors   int
	Canceled int
}

// Summarize counts job outcomes.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusError:
			s.Errors++
		case StatusCanceled:
			s.Canceled++
		}
	}
	return s
}

// ExitCode returns the process exit code for a set of results.
func ExitCode(results []Result) int {
	summary := Summarize(results)
	if summary.Total > 0 && summary.OK == 0 {
		return 3 // nothing succeeded
	}
	if summary.Errors > 0 || summary.Canceled > 0 {
		return 1
	}
	return 0
}

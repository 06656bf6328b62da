// Package benchmark measures tree building and JSON encoding throughput.
package benchmark

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

// Options configures a benchmark run.
type Options struct {
	Iterations int
	Warmup     int
}

// DefaultOptions returns sensible benchmark defaults.
func DefaultOptions() Options {
	return Options{
		Iterations: 20,
		Warmup:     3,
	}
}

// Latencies holds percentile latencies of one measured stage.
type Latencies struct {
	Stage   string
	Samples []time.Duration
	P50     time.Duration
	P95     time.Duration
	P99     time.Duration
}

// Result holds benchmark results for one input.
type Result struct {
	Records  int
	Nodes    int
	Bytes    int
	Stages   []Latencies
	Overhead Overhead
}

// Overhead holds allocation counters accumulated over the measured iterations.
type Overhead struct {
	AllocBytes uint64
	AllocCount uint64
	GCPauses   uint32
}

var (
	bmTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bmHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	bmDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Run builds and serializes stacks repeatedly. Stacks are used as given,
// so callers wanting a grouped tree must sort them first.
func Run(stacks []flamegraph.Stack, opts Options) (Result, error) {
	if opts.Iterations < 1 {
		opts.Iterations = 1
	}

	for i := 0; i < opts.Warmup; i++ {
		if _, err := flamegraph.Serialize(flamegraph.BuildStacks(stacks)); err != nil {
			return Result{}, err
		}
	}

	build := make([]time.Duration, opts.Iterations)
	encode := make([]time.Duration, opts.Iterations)
	var res Result
	res.Records = len(stacks)

	before := MeasureOverhead()
	for i := 0; i < opts.Iterations; i++ {
		start := time.Now()
		tree := flamegraph.BuildStacks(stacks)
		build[i] = time.Since(start)

		start = time.Now()
		out, err := flamegraph.Serialize(tree)
		encode[i] = time.Since(start)
		if err != nil {
			return Result{}, err
		}
		res.Nodes = tree.Len()
		res.Bytes = len(out)
	}
	after := MeasureOverhead()

	res.Stages = []Latencies{latencies("build", build), latencies("encode", encode)}
	res.Overhead = Overhead{
		AllocBytes: after.AllocBytes - before.AllocBytes,
		AllocCount: after.AllocCount - before.AllocCount,
		GCPauses:   after.GCPauses - before.GCPauses,
	}
	return res, nil
}

func latencies(stage string, samples []time.Duration) Latencies {
	sort.Slice(samples, func(i, j int) bool {
		return samples[i] < samples[j]
	})
	return Latencies{
		Stage:   stage,
		Samples: samples,
		P50:     percentile(samples, 0.50),
		P95:     percentile(samples, 0.95),
		P99:     percentile(samples, 0.99),
	}
}

// MeasureOverhead returns the process allocation counters.
func MeasureOverhead() Overhead {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Overhead{
		AllocBytes: m.TotalAlloc,
		AllocCount: m.Mallocs,
		GCPauses:   m.NumGC,
	}
}

// RenderResults outputs styled benchmark results.
func RenderResults(w io.Writer, name string, r Result) {
	fmt.Fprintln(w, bmTitle.Render("Self-Benchmark: "+name))
	fmt.Fprintln(w, bmDim.Render(strings.Repeat("═", 60)))
	fmt.Fprintf(w, "  Records: %s  Nodes: %s  JSON: %s\n\n",
		humanize.Comma(int64(r.Records)),
		humanize.Comma(int64(r.Nodes)),
		humanize.Bytes(uint64(r.Bytes)))
	fmt.Fprintf(w, "  %s %s %s %s\n",
		bmHeader.Render("STAGE     "),
		bmHeader.Render("P50        "),
		bmHeader.Render("P95        "),
		bmHeader.Render("P99        "))
	fmt.Fprintln(w, "  "+bmDim.Render(strings.Repeat("─", 60)))

	for _, s := range r.Stages {
		fmt.Fprintf(w, "  %-12s %-12v %-12v %-12v\n", s.Stage, s.P50, s.P95, s.P99)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, bmTitle.Render("Allocations"))
	fmt.Fprintln(w, bmDim.Render(strings.Repeat("─", 40)))
	fmt.Fprintf(w, "  Memory allocated: %s\n", lipgloss.NewStyle().Bold(true).Render(humanize.Bytes(r.Overhead.AllocBytes)))
	fmt.Fprintf(w, "  Allocations:      %s\n", lipgloss.NewStyle().Bold(true).Render(humanize.Comma(int64(r.Overhead.AllocCount))))
	fmt.Fprintf(w, "  GC cycles:        %s\n", lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d", r.Overhead.GCPauses)))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

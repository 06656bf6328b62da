// Package flamegraph builds aggregated call trees from folded stacks and
// renders them as flame graph JSON or SVG.
package flamegraph

import (
	"context"
	"time"
)

// CaptureOptions configures a profiling capture session.
type CaptureOptions struct {
	Duration  time.Duration
	Frequency int // sampling frequency in Hz
	PID       int // 0 = system-wide
}

// DefaultCaptureOptions returns sensible defaults.
func DefaultCaptureOptions() CaptureOptions {
	return CaptureOptions{
		Duration:  10 * time.Second,
		Frequency: 99,
	}
}

// CaptureResult holds the folded stacks of a capture, sorted.
type CaptureResult struct {
	Stacks      []Stack
	SampleCount uint64
	Tool        string
	Duration    time.Duration
}

// Capture runs a profiler for opts.Duration and returns folded stacks.
// Platform-specific implementation in capture_linux.go and capture_darwin.go.
func Capture(ctx context.Context, opts CaptureOptions) (*CaptureResult, error) {
	if opts.Frequency <= 0 {
		opts.Frequency = DefaultCaptureOptions().Frequency
	}
	res, err := platformCapture(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, s := range res.Stacks {
		res.SampleCount += s.Count
	}
	return res, nil
}

func captureSeconds(d time.Duration) int {
	sec := int(d.Seconds())
	if sec < 1 {
		sec = 1
	}
	return sec
}

//go:build darwin

package flamegraph

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func platformCapture(ctx context.Context, opts CaptureOptions) (*CaptureResult, error) {
	durSec := captureSeconds(opts.Duration)

	// dtrace needs root
	if _, err := exec.LookPath("dtrace"); err == nil && unix.Geteuid() == 0 {
		return captureDtrace(ctx, opts, durSec)
	}

	if _, err := exec.LookPath("sample"); err == nil && opts.PID > 0 {
		return captureSample(ctx, opts, durSec)
	}

	return nil, errors.New("no profiling tools available: dtrace requires root, sample requires a PID")
}

func captureDtrace(ctx context.Context, opts CaptureOptions, durSec int) (*CaptureResult, error) {
	probe := fmt.Sprintf("profile-%d", opts.Frequency)
	script := fmt.Sprintf(`%s /pid == %d/ { @[ustack()] = count(); }`, probe, opts.PID)
	if opts.PID == 0 {
		script = fmt.Sprintf(`%s { @[ustack()] = count(); }`, probe)
	}

	cmd := exec.CommandContext(ctx, "dtrace", "-x", "ustackframes=100", "-n", script, "-c",
		fmt.Sprintf("sleep %d", durSec))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "dtrace failed (%s)", strings.TrimSpace(stderr.String()))
	}

	stacks, err := CollapseDtrace(&stdout, DefaultMaxLineSize)
	if err != nil {
		return nil, err
	}
	return &CaptureResult{
		Stacks:   stacks,
		Tool:     "dtrace",
		Duration: time.Duration(durSec) * time.Second,
	}, nil
}

func captureSample(ctx context.Context, opts CaptureOptions, durSec int) (*CaptureResult, error) {
	cmd := exec.CommandContext(ctx, "sample",
		strconv.Itoa(opts.PID),
		strconv.Itoa(durSec))
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(err, "sample failed")
	}

	stacks, err := CollapseSample(&stdout, DefaultMaxLineSize)
	if err != nil {
		return nil, err
	}
	return &CaptureResult{
		Stacks:   stacks,
		Tool:     "sample",
		Duration: time.Duration(durSec) * time.Second,
	}, nil
}

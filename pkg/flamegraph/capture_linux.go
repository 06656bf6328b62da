//go:build linux

package flamegraph

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func platformCapture(ctx context.Context, opts CaptureOptions) (*CaptureResult, error) {
	if _, err := exec.LookPath("perf"); err != nil {
		return nil, errors.New("perf not found: install linux-tools-common or equivalent")
	}
	if err := checkPerfAccess(opts.PID); err != nil {
		return nil, err
	}

	durSec := captureSeconds(opts.Duration)

	dir, err := os.MkdirTemp("", "foldjson-perf-")
	if err != nil {
		return nil, errors.Wrap(err, "creating perf data directory")
	}
	defer os.RemoveAll(dir)
	data := filepath.Join(dir, "perf.data")

	args := []string{"record", "-F", strconv.Itoa(opts.Frequency), "-g", "-o", data}
	if opts.PID > 0 {
		args = append(args, "-p", strconv.Itoa(opts.PID))
	} else {
		args = append(args, "-a")
	}
	args = append(args, "--", "sleep", strconv.Itoa(durSec))

	cmd := exec.CommandContext(ctx, "perf", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "perf record failed (%s)", strings.TrimSpace(stderr.String()))
	}

	scriptCmd := exec.CommandContext(ctx, "perf", "script", "-i", data)
	var scriptOut bytes.Buffer
	scriptCmd.Stdout = &scriptOut
	if err := scriptCmd.Run(); err != nil {
		return nil, errors.Wrap(err, "perf script failed")
	}

	stacks, err := CollapsePerf(&scriptOut, DefaultMaxLineSize)
	if err != nil {
		return nil, err
	}

	return &CaptureResult{
		Stacks:   stacks,
		Tool:     "perf",
		Duration: time.Duration(durSec) * time.Second,
	}, nil
}

// checkPerfAccess fails early when an unprivileged user cannot sample:
// system-wide capture needs perf_event_paranoid <= 0, per-process <= 1.
func checkPerfAccess(pid int) error {
	if unix.Geteuid() == 0 {
		return nil
	}
	raw, err := os.ReadFile("/proc/sys/kernel/perf_event_paranoid")
	if err != nil {
		return nil
	}
	level, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil
	}
	limit := 0
	if pid > 0 {
		limit = 1
	}
	if level > limit {
		return errors.Errorf("perf_event_paranoid is %d: run as root or lower it to %d", level, limit)
	}
	return nil
}

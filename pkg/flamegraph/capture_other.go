//go:build !linux && !darwin

package flamegraph

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
)

func platformCapture(context.Context, CaptureOptions) (*CaptureResult, error) {
	return nil, errors.Errorf("capture is not supported on %s", runtime.GOOS)
}

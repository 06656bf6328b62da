package flamegraph

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// InputFormat names a stack source format.
type InputFormat string

const (
	InputAuto      InputFormat = "auto"
	InputCollapsed InputFormat = "collapsed"
	InputPerf      InputFormat = "perf"
	InputDtrace    InputFormat = "dtrace"
	InputPprof     InputFormat = "pprof"
	InputSample    InputFormat = "sample"
)

// ReadOptions configures ReadStacks.
type ReadOptions struct {
	Format      InputFormat
	SampleIndex int // pprof value column, negative = last
	MaxLineSize int
}

// DefaultReadOptions returns sensible defaults.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		Format:      InputAuto,
		SampleIndex: -1,
		MaxLineSize: DefaultMaxLineSize,
	}
}

// ParseInputFormat validates a format name.
func ParseInputFormat(s string) (InputFormat, error) {
	switch f := InputFormat(strings.ToLower(s)); f {
	case InputAuto, InputCollapsed, InputPerf, InputDtrace, InputPprof, InputSample:
		return f, nil
	}
	return "", errors.Errorf("unknown input format %q", s)
}

// ReadStacks reads stacks in the given format. Gzip compressed input is
// decompressed transparently. Collapsed input keeps its order; the other
// formats are aggregated and returned sorted.
func ReadStacks(r io.Reader, opts ReadOptions) ([]Stack, InputFormat, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", errors.Wrap(err, "reading input")
	}
	if isGzip(data) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, "", errors.Wrap(err, "opening gzip stream")
		}
		data, err = io.ReadAll(zr)
		if err != nil {
			return nil, "", errors.Wrap(err, "decompressing input")
		}
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	format := opts.Format
	if format == "" || format == InputAuto {
		format = DetectFormat(data)
	}

	var stacks []Stack
	switch format {
	case InputCollapsed:
		stacks, err = ReadCollapsed(bytes.NewReader(data), opts.MaxLineSize)
	case InputPerf:
		stacks, err = CollapsePerf(bytes.NewReader(data), opts.MaxLineSize)
	case InputDtrace:
		stacks, err = CollapseDtrace(bytes.NewReader(data), opts.MaxLineSize)
	case InputSample:
		stacks, err = CollapseSample(bytes.NewReader(data), opts.MaxLineSize)
	case InputPprof:
		stacks, err = CollapsePprof(bytes.NewReader(data), opts.SampleIndex)
	default:
		return nil, "", errors.Errorf("unknown input format %q", format)
	}
	if err != nil {
		return nil, format, err
	}
	return stacks, format, nil
}

var utf8BOM = []byte("\ufeff")

// DetectFormat guesses the format of uncompressed input: data carrying
// control bytes other than tab, CR and LF is a pprof protobuf, a "Call
// graph:" header marks sample(1) output, indented frame lines are perf
// script output, anything else is treated as
// collapsed stacks. A leading byte order mark is ignored.
func DetectFormat(data []byte) InputFormat {
	data = bytes.TrimPrefix(data, utf8BOM)
	head := data
	if len(head) > 100 {
		head = head[:100]
	}
	for _, c := range head {
		if (c < 0x20 && c != '\t' && c != '\r' && c != '\n') || c == 0x7f {
			return InputPprof
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), DefaultMaxLineSize)
	for n := 0; n < 64 && scanner.Scan(); n++ {
		line := scanner.Text()
		if strings.HasPrefix(line, "Call graph:") {
			return InputSample
		}
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "  ") {
			return InputPerf
		}
	}
	return InputCollapsed
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

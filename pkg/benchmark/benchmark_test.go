package benchmark

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(samples, 0.50))
	assert.Equal(t, time.Duration(10), percentile(samples, 0.95))
	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 0.5))
}

func TestRun(t *testing.T) {
	stacks := []flamegraph.Stack{
		flamegraph.ParseStack("main;run 3"),
		flamegraph.ParseStack("main;run;work 2"),
		flamegraph.ParseStack("gc 1"),
	}

	res, err := Run(stacks, Options{Iterations: 5, Warmup: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 5, res.Nodes)
	require.Len(t, res.Stages, 2)
	assert.Len(t, res.Stages[0].Samples, 5)
	assert.LessOrEqual(t, res.Stages[1].P50, res.Stages[1].P99)

	var buf bytes.Buffer
	RenderResults(&buf, "test", res)
	assert.Contains(t, buf.String(), "Self-Benchmark: test")
	assert.Contains(t, buf.String(), "encode")
}

func TestRunEncodeError(t *testing.T) {
	_, err := Run([]flamegraph.Stack{{Frames: []string{"\xff"}, Count: 1}}, DefaultOptions())
	var encErr *flamegraph.EncodeError
	require.ErrorAs(t, err, &encErr)
}

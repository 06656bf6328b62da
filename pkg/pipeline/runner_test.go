package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/foldjson/pkg/output"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "cpu.folded", "f;g 1\na;b;e 3\na 1\na;b 2\n")
	other := writeFile(t, dir, "mem.folded", "solo 5\n")
	missing := filepath.Join(dir, "missing.folded")

	jobs := []Job{
		{Input: good, Output: OutputPath(good, "", output.FormatJSON)},
		{Input: missing, Output: OutputPath(missing, "", output.FormatJSON)},
		{Input: other, Output: OutputPath(other, "", output.FormatJSON)},
	}

	r := NewRunner(DefaultOptions(), nil)
	results := r.RunAll(context.Background(), jobs)
	require.Len(t, results, 3)

	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, 4, results[0].Records)
	assert.Equal(t, uint64(7), results[0].Summary.Total)
	assert.NotEmpty(t, results[0].Timings)

	assert.Equal(t, StatusError, results[1].Status)
	assert.Error(t, results[1].Err)

	assert.Equal(t, StatusOK, results[2].Status)

	data, err := os.ReadFile(filepath.Join(dir, "cpu.json"))
	require.NoError(t, err)
	assert.Equal(t,
		`{"name":"","value":7,"children":[{"name":"a","value":6,"children":[{"name":"b","value":5,"children":[{"name":"e","value":3,"children":[]}]}]},{"name":"f","value":1,"children":[{"name":"g","value":1,"children":[]}]}]}`+"\n",
		string(data))

	data, err = os.ReadFile(filepath.Join(dir, "mem.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"","value":5,"children":[{"name":"solo","value":5,"children":[]}]}`+"\n", string(data))

	assert.Equal(t, 1, ExitCode(results))
	assert.Equal(t, Summary{Total: 3, OK: 2, Errors: 1}, Summarize(results))
}

func TestRunOneWithoutSortKeepsOrder(t *testing.T) {
	opts := DefaultOptions()
	opts.Sort = false

	var out bytes.Buffer
	r := NewRunner(opts, nil)
	r.SetStdio(strings.NewReader("b 1\na 1\nb 1\n"), &out)

	res := r.RunOne(context.Background(), Job{Input: StdStream, Output: StdStream})
	require.NoError(t, res.Err)
	assert.Equal(t,
		`{"name":"","value":3,"children":[{"name":"b","value":1,"children":[]},{"name":"a","value":1,"children":[]},{"name":"b","value":1,"children":[]}]}`+"\n",
		out.String())
}

func TestRunOneCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(DefaultOptions(), nil)
	r.SetStdio(strings.NewReader("a 1\n"), &bytes.Buffer{})
	res := r.RunOne(ctx, Job{Input: StdStream, Output: StdStream})
	assert.Equal(t, StatusCanceled, res.Status)
	assert.Equal(t, 3, ExitCode([]Result{res}))
}

func TestRunOneRenderFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "empty.folded", "")
	outPath := filepath.Join(dir, "empty.svg")

	opts := DefaultOptions()
	opts.Format = output.FormatSVG
	res := NewRunner(opts, nil).RunOne(context.Background(), Job{Input: in, Output: outPath})
	assert.Equal(t, StatusError, res.Status)

	_, err := os.Stat(outPath)
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "cpu.html"), OutputPath("/tmp/cpu.folded", "out", output.FormatHTML))
	assert.Equal(t, filepath.Join("/tmp", "cpu.json"), OutputPath("/tmp/cpu.folded.gz", "", output.FormatJSON))
	assert.Equal(t, filepath.Join("out", "stdin.txt"), OutputPath(StdStream, "out", output.FormatTree))
}

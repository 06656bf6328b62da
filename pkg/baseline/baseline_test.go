package baseline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

func TestSaveLoadList(t *testing.T) {
	dir := t.TempDir()
	tree := flamegraph.Build([]string{"main;work 6", "main;gc 2"})

	b := New("before", tree)
	require.NoError(t, b.Save(dir))
	require.NoError(t, New("after", tree).Save(dir))

	loaded, err := Load("before", dir)
	require.NoError(t, err)
	assert.Equal(t, "before", loaded.Name)
	assert.Equal(t, uint64(8), loaded.Total)
	assert.Equal(t, b.Frames, loaded.Frames)

	names, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"after", "before"}, names)

	_, err = Load("missing", dir)
	assert.Error(t, err)
}

func TestInvalidName(t *testing.T) {
	b := New("../escape", flamegraph.Build([]string{"a 1"}))
	assert.Error(t, b.Save(t.TempDir()))
	_, err := Load("", t.TempDir())
	assert.Error(t, err)
}

func TestListMissingDir(t *testing.T) {
	names, err := List(t.TempDir() + "/nope")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCompare(t *testing.T) {
	b := New("base", flamegraph.Build([]string{"main;gc 2", "main;work 6", "old 2"}))
	current := flamegraph.Build([]string{"main;gc 5", "main;work 5"})

	comparisons := Compare(b, current, 1)
	require.Len(t, comparisons, 3)

	assert.Equal(t, "gc", comparisons[0].Frame)
	assert.InDelta(t, 20.0, comparisons[0].BaselineShare, 1e-9)
	assert.InDelta(t, 50.0, comparisons[0].CurrentShare, 1e-9)
	assert.InDelta(t, 150.0, comparisons[0].DeltaPct, 1e-9)
	assert.Equal(t, SeverityRegress, comparisons[0].Severity)

	assert.Equal(t, "work", comparisons[1].Frame)
	assert.Equal(t, SeverityModerate, comparisons[1].Severity)

	assert.Equal(t, "old", comparisons[2].Frame)
	assert.InDelta(t, -100.0, comparisons[2].DeltaPct, 1e-9)
	assert.Equal(t, SeverityMajor, comparisons[2].Severity)

	assert.Equal(t, 1, Regressions(comparisons))

	var buf bytes.Buffer
	RenderComparison(&buf, b, comparisons)
	assert.Contains(t, buf.String(), "1 potential regressions detected.")
}

func TestClassifySeverity(t *testing.T) {
	for _, test := range []struct {
		delta    float64
		expected Severity
	}{
		{0, SeverityNone},
		{-4.9, SeverityNone},
		{10, SeverityMinor},
		{-20, SeverityModerate},
		{45, SeverityRegress},
		{-45, SeverityMajor},
	} {
		assert.Equal(t, test.expected, classifySeverity(test.delta), "delta %v", test.delta)
	}
}

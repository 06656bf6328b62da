package flamegraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

func TestSummarize(t *testing.T) {
	tree := flamegraph.Build([]string{
		"main;parse 2",
		"main;walk;walk;visit 5",
		"main;walk 1",
		"gc 3",
	})

	s := flamegraph.Summarize(tree, 3)
	assert.Equal(t, uint64(11), s.Total)
	assert.Equal(t, 6, s.Nodes)
	assert.Equal(t, 3, s.Leaves)
	assert.Equal(t, 4, s.MaxDepth)
	assert.Equal(t, []flamegraph.FrameStat{
		{Name: "visit", Self: 5, Total: 5},
		{Name: "gc", Self: 3, Total: 3},
		{Name: "parse", Self: 2, Total: 2},
	}, s.Top)

	all := flamegraph.Summarize(tree, -1)
	byName := make(map[string]flamegraph.FrameStat)
	for _, fs := range all.Top {
		byName[fs.Name] = fs
	}
	// recursive walk;walk counts each stack once
	assert.Equal(t, flamegraph.FrameStat{Name: "walk", Self: 1, Total: 6}, byName["walk"])
	assert.Equal(t, flamegraph.FrameStat{Name: "main", Self: 0, Total: 8}, byName["main"])
}

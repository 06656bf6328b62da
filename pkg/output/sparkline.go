package output

import (
	"strings"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

// sparkline block characters from lowest to highest
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as unicode blocks scaled between zero and the
// largest value.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	max := values[0]
	for _, v := range values {
		if v > max {
			max = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if max > 0 {
			idx = int(v / max * float64(len(sparkBlocks)-1))
		}
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(sparkBlocks[idx])
	}

	return b.String()
}

// depthProfile returns, for each depth starting at 1, the samples whose
// stacks reach that depth.
func depthProfile(t *flamegraph.Tree) []float64 {
	profile := make([]float64, t.MaxDepth())
	t.Walk(func(id flamegraph.NodeID, depth int) bool {
		if depth > 0 {
			profile[depth-1] += float64(t.Node(id).Value)
		}
		return true
	})
	return profile
}

package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

func testTree() *flamegraph.Tree {
	return flamegraph.Build([]string{"main;read 1", "main;run;work 4", "gc 1"})
}

func render(t *testing.T, format Format, tree *flamegraph.Tree) string {
	t.Helper()
	var buf bytes.Buffer
	f := NewFormatter(format, &buf)
	f.SetTitle("test profile")
	require.NoError(t, f.Render(tree))
	return buf.String()
}

func TestRenderJSON(t *testing.T) {
	out := render(t, FormatJSON, flamegraph.Build([]string{"solo 5"}))
	assert.Equal(t, `{"name":"","value":5,"children":[{"name":"solo","value":5,"children":[]}]}`+"\n", out)
}

func TestRenderTSV(t *testing.T) {
	out := render(t, FormatTSV, testTree())
	assert.Equal(t, strings.Join([]string{
		"PATH\tSELF\tTOTAL",
		"main\t0\t5",
		"main;read\t1\t1",
		"main;run\t0\t4",
		"main;run;work\t4\t4",
		"gc\t1\t1",
		"",
	}, "\n"), out)
}

func TestRenderTree(t *testing.T) {
	out := render(t, FormatTree, testTree())
	for _, label := range []string{
		"all 6 (100.0%)",
		"main 5 (83.3%)",
		"work 4 (66.7%)",
		"gc 1 (16.7%)",
	} {
		assert.Contains(t, out, label)
	}
	assert.Less(t, strings.Index(out, "main"), strings.Index(out, "gc"))
}

func TestRenderTable(t *testing.T) {
	out := render(t, FormatTable, testTree())
	assert.Contains(t, out, "test profile")
	assert.Contains(t, out, "Samples: 6")
	assert.Contains(t, out, "Max depth: 3")
	assert.Contains(t, out, "FRAME")
	assert.Contains(t, out, "work")
	assert.Less(t, strings.Index(out, "work"), strings.Index(out, "read"))
}

func TestRenderHTMLAndSVG(t *testing.T) {
	html := render(t, FormatHTML, testTree())
	assert.Contains(t, html, "<title>test profile</title>")
	assert.Contains(t, html, `var data = {"name":"","value":6,`)

	svg := render(t, FormatSVG, testTree())
	assert.Contains(t, svg, "test profile")
	assert.Contains(t, svg, "(6 samples)")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("HTML")
	require.NoError(t, err)
	assert.Equal(t, FormatHTML, f)
	assert.Equal(t, ".html", f.Extension())
	assert.Equal(t, ".txt", FormatTable.Extension())

	_, err = ParseFormat("png")
	assert.Error(t, err)
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", Sparkline(nil))
	assert.Equal(t, "█▄▁", Sparkline([]float64{8, 4, 0}))
	assert.Equal(t, "▁▁", Sparkline([]float64{0, 0}))
}

func TestDepthProfile(t *testing.T) {
	// depth 1: main 5 + gc 1, depth 2: read 1 + run 4, depth 3: work 4
	assert.Equal(t, []float64{6, 5, 4}, depthProfile(testTree()))

	out := render(t, FormatTable, testTree())
	assert.Contains(t, out, "Depth profile: "+Sparkline([]float64{6, 5, 4}))
}

package page_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danpilch/foldjson/pkg/flamegraph"
	"github.com/danpilch/foldjson/pkg/page"
)

func TestHTML(t *testing.T) {
	out := page.HTML(`{"name":"","value":0,"children":[]}`, "cpu <profile>")

	require.Contains(t, out, `var data = {"name":"","value":0,"children":[]};`)
	require.Contains(t, out, "<title>cpu &lt;profile&gt;</title>")
	require.NotContains(t, out, "{stack}")
	require.NotContains(t, out, "{title}")
	require.Contains(t, out, ".selfValue(false)")
}

func TestHTMLPlaceholdersNotResubstituted(t *testing.T) {
	out := page.HTML(`{"name":"{title}","value":1,"children":[]}`, "{stack}")

	require.Contains(t, out, `var data = {"name":"{title}","value":1,"children":[]};`)
	require.Contains(t, out, "<title>{stack}</title>")
}

func TestHTMLDefaultTitle(t *testing.T) {
	require.Contains(t, page.HTML("{}", ""), "<title>"+page.DefaultTitle+"</title>")
}

func TestRender(t *testing.T) {
	tree := flamegraph.Build([]string{"main;</script><script>alert(1) 1"})

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf, tree, "x"))
	out := buf.String()

	require.NotContains(t, out, "</script><script>alert")
	require.Contains(t, out, `\u003c/script\u003e\u003cscript\u003ealert(1)`)
}

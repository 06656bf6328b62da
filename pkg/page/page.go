// Package page wraps flame graph JSON into a self-contained d3-flamegraph
// HTML document.
package page

import (
	_ "embed"
	"html"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

const (
	stackPlaceholder = "{stack}"
	titlePlaceholder = "{title}"
)

// DefaultTitle is used when no title is given.
const DefaultTitle = "foldjson"

//go:embed flamegraph.html
var htmlTemplate string

// HTML substitutes data and title into the template. The replacement is a
// single pass, so placeholder text inside data or title stays literal. The
// title is HTML-escaped; data must already be safe inside a script element,
// which flamegraph.Serialize guarantees.
func HTML(data, title string) string {
	if title == "" {
		title = DefaultTitle
	}
	r := strings.NewReplacer(
		stackPlaceholder, data,
		titlePlaceholder, html.EscapeString(title),
	)
	return r.Replace(htmlTemplate)
}

// Write renders the page to w.
func Write(w io.Writer, data, title string) error {
	_, err := io.WriteString(w, HTML(data, title))
	return errors.Wrap(err, "writing flame graph page")
}

// Render serializes the tree and writes the page.
func Render(w io.Writer, t *flamegraph.Tree, title string) error {
	data, err := flamegraph.Serialize(t)
	if err != nil {
		return err
	}
	return Write(w, data, title)
}

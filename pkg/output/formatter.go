// Package output provides formatters for built flame graph trees.
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/xlab/treeprint"

	"github.com/danpilch/foldjson/pkg/flamegraph"
	"github.com/danpilch/foldjson/pkg/page"
)

// Format represents the output format type.
type Format string

const (
	FormatJSON  Format = "json"
	FormatHTML  Format = "html"
	FormatSVG   Format = "svg"
	FormatTree  Format = "tree"
	FormatTable Format = "table"
	FormatTSV   Format = "tsv"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatHTML, FormatSVG, FormatTree, FormatTable, FormatTSV}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown output format %q", s)
}

// Extension returns the file extension used for the format.
func (f Format) Extension() string {
	switch f {
	case FormatTree, FormatTable:
		return ".txt"
	default:
		return "." + string(f)
	}
}

// Terminal reports whether the format is meant to be read on a terminal.
func (f Format) Terminal() bool {
	return f == FormatTree || f == FormatTable || f == FormatTSV || f == FormatJSON
}

// Formatter handles output formatting.
type Formatter struct {
	format Format
	writer io.Writer
	title  string
	topN   int
	svg    flamegraph.SVGOptions
}

// NewFormatter creates a new formatter.
func NewFormatter(format Format, writer io.Writer) *Formatter {
	return &Formatter{
		format: format,
		writer: writer,
		title:  page.DefaultTitle,
		topN:   10,
		svg:    flamegraph.DefaultSVGOptions(),
	}
}

// SetTitle sets the title of html and svg documents.
func (f *Formatter) SetTitle(title string) {
	if title == "" {
		return
	}
	f.title = title
	f.svg.Title = title
}

// SetTopN sets how many frames the table format lists.
func (f *Formatter) SetTopN(n int) {
	f.topN = n
}

// SetSVGOptions overrides the svg layout.
func (f *Formatter) SetSVGOptions(opts flamegraph.SVGOptions) {
	if opts.Title == "" {
		opts.Title = f.svg.Title
	}
	f.svg = opts
}

// Render outputs the tree in the configured format.
func (f *Formatter) Render(t *flamegraph.Tree) error {
	switch f.format {
	case FormatHTML:
		return page.Render(f.writer, t, f.title)
	case FormatSVG:
		return flamegraph.RenderSVG(f.writer, t, f.svg)
	case FormatTree:
		return f.renderTree(t)
	case FormatTable:
		return f.renderTable(t)
	case FormatTSV:
		return f.renderTSV(t)
	default:
		return f.renderJSON(t)
	}
}

// renderJSON outputs the tree followed by a newline.
func (f *Formatter) renderJSON(t *flamegraph.Tree) error {
	if err := flamegraph.Encode(f.writer, t); err != nil {
		return err
	}
	_, err := io.WriteString(f.writer, "\n")
	return errors.Wrap(err, "writing json")
}

func nodeLabel(name string, value, total uint64) string {
	pct := 0.0
	if total > 0 {
		pct = float64(value) / float64(total) * 100
	}
	return fmt.Sprintf("%s %d (%.1f%%)", name, value, pct)
}

// renderTree outputs an indented outline of the call tree.
func (f *Formatter) renderTree(t *flamegraph.Tree) error {
	total := t.Total()
	root := treeprint.NewWithRoot(nodeLabel("all", total, total))

	var addChildren func(branch treeprint.Tree, id flamegraph.NodeID)
	addChildren = func(branch treeprint.Tree, id flamegraph.NodeID) {
		for _, c := range t.Node(id).Children {
			n := t.Node(c)
			label := nodeLabel(n.Name, n.Value, total)
			if len(n.Children) == 0 {
				branch.AddNode(label)
				continue
			}
			addChildren(branch.AddBranch(label), c)
		}
	}
	addChildren(root, flamegraph.RootID)

	_, err := io.WriteString(f.writer, root.String())
	return errors.Wrap(err, "writing tree")
}

// renderTable outputs summary statistics and the hottest frames as a styled table.
func (f *Formatter) renderTable(t *flamegraph.Tree) error {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	hotStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	summary := flamegraph.Summarize(t, f.topN)

	fmt.Fprintln(f.writer, titleStyle.Render(f.title))
	fmt.Fprintln(f.writer, strings.Repeat("═", 60))
	fmt.Fprintf(f.writer, "Samples: %s  Frames: %s  Leaves: %s  Max depth: %d\n\n",
		humanize.Comma(int64(summary.Total)),
		humanize.Comma(int64(summary.Nodes)),
		humanize.Comma(int64(summary.Leaves)),
		summary.MaxDepth)
	if profile := depthProfile(t); len(profile) > 1 {
		fmt.Fprintf(f.writer, "Depth profile: %s\n\n", Sparkline(profile))
	}

	rows := make([][]string, len(summary.Top))
	for i, fs := range summary.Top {
		self := percentOf(fs.Self, summary.Total)
		if i == 0 && fs.Self > 0 {
			self = hotStyle.Render(self)
		}
		rows[i] = []string{
			strconv.Itoa(i + 1),
			fs.Name,
			strconv.FormatUint(fs.Self, 10),
			self,
			strconv.FormatUint(fs.Total, 10),
			percentOf(fs.Total, summary.Total),
		}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("#", "FRAME", "SELF", "SELF%", "TOTAL", "TOTAL%").
		Rows(rows...)

	_, err := fmt.Fprintln(f.writer, tbl)
	return errors.Wrap(err, "writing table")
}

func percentOf(v, total uint64) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(v)/float64(total)*100)
}

// renderTSV outputs one row per node: folded path, self and total value.
func (f *Formatter) renderTSV(t *flamegraph.Tree) error {
	fmt.Fprintln(f.writer, "PATH\tSELF\tTOTAL")

	var path []string
	var err error
	t.Walk(func(id flamegraph.NodeID, depth int) bool {
		if depth == 0 || err != nil {
			return err == nil
		}
		n := t.Node(id)
		path = append(path[:depth-1], n.Name)
		_, err = fmt.Fprintf(f.writer, "%s\t%d\t%d\n", strings.Join(path, ";"), t.Self(id), n.Value)
		return err == nil
	})
	return errors.Wrap(err, "writing tsv")
}

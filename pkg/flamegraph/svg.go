package flamegraph

import (
	"bufio"
	"fmt"
	"html"
	"io"

	"github.com/pkg/errors"
)

// ErrNoSamples is returned when rendering a tree whose root value is zero.
var ErrNoSamples = errors.New("no samples found in stacks")

// SVGOptions configures the flame graph SVG output.
type SVGOptions struct {
	Title       string
	Width       int
	Height      int
	ColorScheme string // "hot", "cold", "mem"
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Title:       "Flame Graph",
		Width:       1200,
		ColorScheme: "hot",
	}
}

type svgLayout struct {
	frameHeight  int
	totalSamples uint64
	baseY        int
	scheme       string
}

// RenderSVG draws the tree as a static SVG flame graph. Frames are laid out
// left to right in the tree's stored child order.
func RenderSVG(w io.Writer, t *Tree, opts SVGOptions) error {
	if opts.Width == 0 {
		opts.Width = 1200
	}
	if t.Total() == 0 {
		return ErrNoSamples
	}

	frameHeight := 16
	fontSize := 12
	chartHeight := (t.MaxDepth() + 2) * frameHeight
	headerHeight := 40
	if opts.Height == 0 {
		opts.Height = chartHeight + headerHeight + 20
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" standalone="no"?>
<!DOCTYPE svg PUBLIC "-//W3C//DTD SVG 1.1//EN" "http://www.w3.org/Graphics/SVG/1.1/DTD/svg1.1.dtd">
<svg version="1.1" width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">
<style>
  .func:hover { stroke:black; stroke-width:0.5; cursor:pointer; }
  text { font-family: monospace; font-size: %dpx; }
</style>
<rect x="0" y="0" width="%d" height="%d" fill="white"/>
<text x="%d" y="20" text-anchor="middle" style="font-size:16px; font-weight:bold;">%s</text>
<text x="%d" y="35" text-anchor="middle" style="font-size:12px; fill:#666;">(%d samples)</text>
`,
		opts.Width, opts.Height, fontSize,
		opts.Width, opts.Height,
		opts.Width/2, html.EscapeString(opts.Title),
		opts.Width/2, t.Total())

	// Frames are drawn bottom-up, the root spans the whole chart.
	margin := 10
	layout := svgLayout{
		frameHeight:  frameHeight,
		totalSamples: t.Total(),
		baseY:        opts.Height - 20,
		scheme:       opts.ColorScheme,
	}
	renderFrame(bw, t, RootID, margin, opts.Width-2*margin, 0, layout)

	fmt.Fprintln(bw, "</svg>")
	return errors.Wrap(bw.Flush(), "writing svg")
}

func renderFrame(w io.Writer, t *Tree, id NodeID, x, width, depth int, l svgLayout) {
	n := t.Node(id)
	if width < 1 || n.Value == 0 {
		return
	}

	name := n.Name
	if id == RootID {
		name = "all"
	}
	y := l.baseY - (depth * l.frameHeight)
	r, g, b := frameColor(depth, l.scheme)

	fmt.Fprintf(w, `<g class="func">
<rect x="%d" y="%d" width="%d" height="%d" fill="rgb(%d,%d,%d)" rx="1"/>
`, x, y-l.frameHeight, width, l.frameHeight-1, r, g, b)

	if width > 40 {
		label := []rune(name)
		maxChars := (width - 4) / 7 // approximate char width
		if len(label) > maxChars {
			if maxChars > 3 {
				label = append(label[:maxChars-2], '.', '.')
			} else {
				label = nil
			}
		}
		if len(label) > 0 {
			fmt.Fprintf(w, `<text x="%d" y="%d" fill="black">%s</text>
`, x+2, y-4, html.EscapeString(string(label)))
		}
	}

	pct := float64(n.Value) / float64(l.totalSamples) * 100
	fmt.Fprintf(w, `<title>%s (%d samples, %.1f%%)</title>
</g>
`, html.EscapeString(name), n.Value, pct)

	childX := x
	for _, c := range n.Children {
		child := t.Node(c)
		childWidth := int(float64(width) * float64(child.Value) / float64(n.Value))
		if childWidth < 1 {
			childWidth = 1
		}
		renderFrame(w, t, c, childX, childWidth, depth+1, l)
		childX += childWidth
	}
}

func frameColor(depth int, scheme string) (int, int, int) {
	// Deterministic color based on depth
	switch scheme {
	case "cold":
		g := 50 + (depth*30)%150
		b := 150 + (depth*20)%100
		return 30, g, b
	case "mem":
		g := 190 + (depth*15)%60
		return 30, g, 30
	default: // "hot"
		r := 200 + (depth*15)%55
		g := 50 + (depth*40)%150
		return r, g, 30
	}
}

package baseline

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

// Severity indicates the magnitude of a frame's drift.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityRegress  Severity = "regression"
)

// Comparison holds the drift of one frame's self share, in percent of all
// samples.
type Comparison struct {
	Frame         string
	BaselineShare float64
	CurrentShare  float64
	DeltaPct      float64
	Severity      Severity
}

var (
	blTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	blHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	blDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	blOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	blWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	blErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	blMinor  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func share(v, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(v) / float64(total) * 100
}

// Compare matches frames by name and calculates the drift of their self
// share. Frames whose share stays below minShare in both profiles are
// skipped. Results are ordered by current self share, then frames that
// disappeared.
func Compare(b *Baseline, t *flamegraph.Tree, minShare float64) []Comparison {
	baseline := make(map[string]float64, len(b.Frames))
	for _, f := range b.Frames {
		baseline[f.Name] = share(f.Self, b.Total)
	}

	current := flamegraph.Summarize(t, -1)
	seen := make(map[string]bool, len(current.Top))

	var comparisons []Comparison
	add := func(name string, base, cur float64) {
		if base < minShare && cur < minShare {
			return
		}
		var deltaPct float64
		if base != 0 {
			deltaPct = (cur - base) / math.Abs(base) * 100
		} else if cur != 0 {
			deltaPct = 100
		}
		comparisons = append(comparisons, Comparison{
			Frame:         name,
			BaselineShare: base,
			CurrentShare:  cur,
			DeltaPct:      deltaPct,
			Severity:      classifySeverity(deltaPct),
		})
	}

	for _, f := range current.Top {
		seen[f.Name] = true
		add(f.Name, baseline[f.Name], share(f.Self, current.Total))
	}

	var gone []string
	for name := range baseline {
		if !seen[name] {
			gone = append(gone, name)
		}
	}
	sort.Strings(gone)
	for _, name := range gone {
		add(name, baseline[name], 0)
	}

	return comparisons
}

func classifySeverity(deltaPct float64) Severity {
	absDelta := math.Abs(deltaPct)
	if absDelta < 5 {
		return SeverityNone
	}
	if absDelta < 15 {
		return SeverityMinor
	}
	if absDelta < 30 {
		return SeverityModerate
	}
	if deltaPct > 0 {
		return SeverityRegress
	}
	return SeverityMajor
}

// Regressions counts frames whose self share grew significantly.
func Regressions(comparisons []Comparison) int {
	n := 0
	for _, c := range comparisons {
		if c.Severity == SeverityRegress {
			n++
		}
	}
	return n
}

// RenderComparison outputs a styled comparison table.
func RenderComparison(w io.Writer, b *Baseline, comparisons []Comparison) {
	fmt.Fprintln(w, blTitle.Render("Baseline Comparison"))
	fmt.Fprintln(w, blDim.Render(strings.Repeat("═", 90)))
	fmt.Fprintf(w, "Comparing against %s (from %s, %d samples)\n\n",
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%q", b.Name)),
		blDim.Render(b.Timestamp.Format("2006-01-02 15:04:05")),
		b.Total)

	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		blHeader.Render("FRAME                                   "),
		blHeader.Render("BASELINE  "),
		blHeader.Render("CURRENT   "),
		blHeader.Render("DELTA    "),
		blHeader.Render("SEVERITY  "))
	fmt.Fprintln(w, "  "+blDim.Render(strings.Repeat("─", 90)))

	for _, c := range comparisons {
		var sevStr string
		switch c.Severity {
		case SeverityRegress:
			sevStr = blErr.Render("REGRESSION")
		case SeverityMajor:
			sevStr = blErr.Render("MAJOR")
		case SeverityModerate:
			sevStr = blWarn.Render("moderate")
		case SeverityMinor:
			sevStr = blMinor.Render("minor")
		default:
			sevStr = blOK.Render("none")
		}

		frame := c.Frame
		if r := []rune(frame); len(r) > 41 {
			frame = string(r[:40]) + "…"
		}
		fmt.Fprintf(w, "  %-42s %-11s %-11s %-10s %s\n",
			frame,
			fmt.Sprintf("%.2f%%", c.BaselineShare),
			fmt.Sprintf("%.2f%%", c.CurrentShare),
			fmt.Sprintf("%+.1f%%", c.DeltaPct),
			sevStr)
	}

	fmt.Fprintln(w)
	if n := Regressions(comparisons); n > 0 {
		fmt.Fprintf(w, "  %s\n", blErr.Render(fmt.Sprintf("%d potential regressions detected.", n)))
	} else {
		fmt.Fprintf(w, "  %s\n", blOK.Render("No significant regressions detected."))
	}
}

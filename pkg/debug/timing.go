package debug

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	debugTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	debugHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	debugDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Stopwatch measures consecutive stages.
type Stopwatch struct {
	last   time.Time
	stages []StageTiming
}

// NewStopwatch starts timing the first stage.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{last: time.Now()}
}

// Lap closes the running stage under name and starts the next one.
func (s *Stopwatch) Lap(name string) time.Duration {
	now := time.Now()
	d := now.Sub(s.last)
	s.last = now
	s.stages = append(s.stages, StageTiming{Name: name, Duration: d})
	return d
}

// Timings returns the recorded stages in order.
func (s *Stopwatch) Timings() []StageTiming {
	return s.stages
}

// Total returns the sum of all recorded stages.
func (s *Stopwatch) Total() time.Duration {
	var total time.Duration
	for _, st := range s.stages {
		total += st.Duration
	}
	return total
}

// TimingReport prints a styled timing summary for a job's stages.
func TimingReport(w io.Writer, job string, timings []StageTiming) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Stage Timing: "+job))
	fmt.Fprintln(w, debugDim.Render(strings.Repeat("═", 40)))
	fmt.Fprintf(w, "  %s  %s\n",
		debugHeader.Render("STAGE              "),
		debugHeader.Render("DURATION    "))
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 40)))

	var total time.Duration
	for _, t := range timings {
		fmt.Fprintf(w, "  %-20s %v\n", t.Name, t.Duration)
		total += t.Duration
	}
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 40)))
	fmt.Fprintf(w, "  %-20s %v\n",
		lipgloss.NewStyle().Bold(true).Render("TOTAL"), total)
}

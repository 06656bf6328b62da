package flamegraph

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMaxLineSize bounds a single input line.
const DefaultMaxLineSize = 4 << 20

// folder aggregates identical stacks and hands them back sorted.
type folder struct {
	counts map[string]uint64
	frames map[string][]string
}

func newFolder() *folder {
	return &folder{
		counts: make(map[string]uint64),
		frames: make(map[string][]string),
	}
}

// frameReplacer rewrites the folded format's separators inside a symbol.
var frameReplacer = strings.NewReplacer(";", "_", " ", "_", "\t", "_")

func (f *folder) add(frames []string, count uint64) {
	if len(frames) == 0 {
		return
	}
	clean := make([]string, len(frames))
	for i, name := range frames {
		clean[i] = frameReplacer.Replace(name)
	}
	key := strings.Join(clean, ";")
	if _, ok := f.frames[key]; !ok {
		f.frames[key] = clean
	}
	f.counts[key] += count
}

func (f *folder) stacks() []Stack {
	out := make([]Stack, 0, len(f.counts))
	for key, count := range f.counts {
		out = append(out, Stack{Frames: f.frames[key], Count: count})
	}
	SortStacks(out)
	return out
}

func newScanner(r io.Reader, maxLineSize int) *bufio.Scanner {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	initial := 64 * 1024
	if maxLineSize < initial {
		initial = maxLineSize
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initial), maxLineSize)
	return scanner
}

// ReadCollapsed reads folded lines in input order. Blank lines are kept as
// frameless records so their counts reach the root.
func ReadCollapsed(r io.Reader, maxLineSize int) ([]Stack, error) {
	var stacks []Stack
	scanner := newScanner(r, maxLineSize)
	for scanner.Scan() {
		stacks = append(stacks, ParseStack(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading collapsed stacks")
	}
	return stacks, nil
}

// CollapsePerf converts perf script output to folded stacks.
// Input: perf script output with stack traces separated by blank lines.
func CollapsePerf(r io.Reader, maxLineSize int) ([]Stack, error) {
	f := newFolder()
	scanner := newScanner(r, maxLineSize)

	var current []string
	flush := func() {
		// perf prints the leaf first
		for i, j := 0, len(current)-1; i < j; i, j = i+1, j-1 {
			current[i], current[j] = current[j], current[i]
		}
		f.add(current, 1)
		current = current[:0]
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			continue
		}

		// Frame lines are indented: "	ffffffff810a perf_event_task_tick+0xa ([kernel.kallsyms])"
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "  ") {
			fields := strings.Fields(trimmed)
			if len(fields) >= 2 {
				current = append(current, trimOffset(fields[1]))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading perf script output")
	}
	flush()

	return f.stacks(), nil
}

// CollapseDtrace converts dtrace aggregation output to folded stacks.
// Dtrace prints the leaf first and ends every stack with its count.
func CollapseDtrace(r io.Reader, maxLineSize int) ([]Stack, error) {
	f := newFolder()
	scanner := newScanner(r, maxLineSize)

	var current []string
	emit := func(count uint64) {
		for i, j := 0, len(current)-1; i < j; i, j = i+1, j-1 {
			current[i], current[j] = current[j], current[i]
		}
		f.add(current, count)
		current = current[:0]
	}

	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())

		if trimmed == "" {
			if len(current) > 0 {
				emit(1)
			}
			continue
		}

		if isCountLine(trimmed) {
			if len(current) > 0 {
				count, err := strconv.ParseUint(trimmed, 10, 64)
				if err != nil {
					count = 1
				}
				emit(count)
			}
			continue
		}

		name := trimmed
		// module`function+0x12
		if idx := strings.Index(name, "`"); idx >= 0 {
			name = name[idx+1:]
		}
		current = append(current, trimOffset(name))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading dtrace output")
	}
	if len(current) > 0 {
		emit(1)
	}

	return f.stacks(), nil
}

// CollapseSample converts the call graph printed by macOS sample(1) to
// folded stacks. Every node carries a cumulative count; the part not
// covered by its children is emitted as the node's own stack.
func CollapseSample(r io.Reader, maxLineSize int) ([]Stack, error) {
	f := newFolder()
	scanner := newScanner(r, maxLineSize)

	type entry struct {
		column   int
		name     string
		count    uint64
		children uint64
	}
	var path []entry
	frames := func() []string {
		out := make([]string, len(path))
		for i, e := range path {
			out[i] = e.name
		}
		return out
	}
	// pop unwinds every node at or right of column
	pop := func(column int) {
		for len(path) > 0 && path[len(path)-1].column >= column {
			e := path[len(path)-1]
			if e.count > e.children {
				f.add(frames(), e.count-e.children)
			}
			path = path[:len(path)-1]
		}
	}

	inGraph := false
	for scanner.Scan() {
		line := scanner.Text()
		if !inGraph {
			inGraph = strings.HasPrefix(line, "Call graph:")
			continue
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		column, count, name, ok := parseSampleLine(line)
		if !ok {
			continue
		}
		pop(column)
		if len(path) > 0 {
			path[len(path)-1].children += count
		}
		path = append(path, entry{column: column, name: name, count: count})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading sample output")
	}
	pop(0)

	return f.stacks(), nil
}

// parseSampleLine splits "    +   ! 42 main  (in app) + 52  [0x1]" into the
// column of the count, the count and the symbol.
func parseSampleLine(line string) (int, uint64, string, bool) {
	column := strings.IndexFunc(line, func(r rune) bool {
		return !strings.ContainsRune(" +!:|", r)
	})
	if column < 0 {
		return 0, 0, "", false
	}
	digits, rest, _ := strings.Cut(line[column:], " ")
	count, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, 0, "", false
	}
	name, _, _ := strings.Cut(strings.TrimSpace(rest), "  ")
	if name == "" {
		return 0, 0, "", false
	}
	return column, count, name, true
}

func trimOffset(name string) string {
	if idx := strings.Index(name, "+"); idx > 0 {
		return name[:idx]
	}
	return name
}

func isCountLine(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// WriteCollapsed writes stacks as folded lines, one per stack.
func WriteCollapsed(w io.Writer, stacks []Stack) error {
	bw := bufio.NewWriter(w)
	for _, s := range stacks {
		if _, err := bw.WriteString(s.String()); err != nil {
			return errors.Wrap(err, "writing collapsed stacks")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "writing collapsed stacks")
		}
	}
	return errors.Wrap(bw.Flush(), "writing collapsed stacks")
}

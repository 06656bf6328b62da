package flamegraph_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danpilch/foldjson/pkg/flamegraph"
)

const perfScript = `swapper     0 [000] 12345.678: 10101010 cpu-clock:
	ffffffff810a native_safe_halt+0x6 ([kernel.kallsyms])
	ffffffff810b default_idle+0x1e ([kernel.kallsyms])
	ffffffff810c cpu_startup_entry+0x7a ([kernel.kallsyms])

app  4242 [001] 12345.679: 10101010 cpu-clock:
	0000000000401000 compute+0x10 (/usr/bin/app)
	0000000000402000 main+0x20 (/usr/bin/app)

app  4242 [001] 12345.680: 10101010 cpu-clock:
	0000000000401000 compute+0x18 (/usr/bin/app)
	0000000000402000 main+0x20 (/usr/bin/app)
`

const dtraceOut = `
              libsystem_kernel.dylib` + "`" + `__psynch_cvwait+0xa
              app` + "`" + `worker+0x40
              app` + "`" + `main+0x12
               7

              app` + "`" + `main+0x12
               2
`

func TestCollapsePerf(t *testing.T) {
	stacks, err := flamegraph.CollapsePerf(strings.NewReader(perfScript), 0)
	require.NoError(t, err)
	require.Equal(t, []flamegraph.Stack{
		{Frames: []string{"cpu_startup_entry", "default_idle", "native_safe_halt"}, Count: 1},
		{Frames: []string{"main", "compute"}, Count: 2},
	}, stacks)
}

func TestCollapseDtrace(t *testing.T) {
	stacks, err := flamegraph.CollapseDtrace(strings.NewReader(dtraceOut), 0)
	require.NoError(t, err)
	require.Equal(t, []flamegraph.Stack{
		{Frames: []string{"main"}, Count: 2},
		{Frames: []string{"main", "worker", "__psynch_cvwait"}, Count: 7},
	}, stacks)
}

func TestReadCollapsedKeepsOrder(t *testing.T) {
	stacks, err := flamegraph.ReadCollapsed(strings.NewReader("b;c 2\na 1\n\nx\n"), 0)
	require.NoError(t, err)
	require.Equal(t, []flamegraph.Stack{
		{Frames: []string{"b", "c"}, Count: 2},
		{Frames: []string{"a"}, Count: 1},
		{Count: 1},
		{Frames: []string{"x"}, Count: 1},
	}, stacks)
}

func TestReadCollapsedLineTooLong(t *testing.T) {
	_, err := flamegraph.ReadCollapsed(strings.NewReader(strings.Repeat("a;", 100)+" 1\n"), 16)
	require.Error(t, err)
}

func TestSortStacksGroupsPrefixes(t *testing.T) {
	stacks := []flamegraph.Stack{
		flamegraph.ParseStack("a;b;c 1"),
		flamegraph.ParseStack("a;b! 1"),
		flamegraph.ParseStack("a;b 1"),
		flamegraph.ParseStack("f 1"),
		flamegraph.ParseStack("a 1"),
	}
	flamegraph.SortStacks(stacks)

	var lines []string
	for _, s := range stacks {
		lines = append(lines, s.String())
	}
	require.Equal(t, []string{"a 1", "a;b 1", "a;b;c 1", "a;b! 1", "f 1"}, lines)

	tree := flamegraph.BuildStacks(stacks)
	a := tree.Node(tree.Node(flamegraph.RootID).Children[0])
	require.Len(t, a.Children, 2)
}

func TestWriteCollapsed(t *testing.T) {
	var buf bytes.Buffer
	err := flamegraph.WriteCollapsed(&buf, []flamegraph.Stack{
		{Frames: []string{"main", "run"}, Count: 3},
		{Frames: []string{"main"}, Count: 1},
	})
	require.NoError(t, err)
	require.Equal(t, "main;run 3\nmain 1\n", buf.String())
}

func TestParseStack(t *testing.T) {
	for _, test := range []struct {
		line     string
		expected flamegraph.Stack
	}{
		{"a;b;c 42", flamegraph.Stack{Frames: []string{"a", "b", "c"}, Count: 42}},
		{"a;b", flamegraph.Stack{Frames: []string{"a", "b"}, Count: 1}},
		{"a 3 trailing", flamegraph.Stack{Frames: []string{"a"}, Count: 3}},
		{"a 0x10", flamegraph.Stack{Frames: []string{"a"}, Count: 1}},
		{"a;;b 2", flamegraph.Stack{Frames: []string{"a", "", "b"}, Count: 2}},
		{"", flamegraph.Stack{Count: 1}},
		{" 9", flamegraph.Stack{Count: 9}},
	} {
		t.Run(test.line, func(t *testing.T) {
			require.Equal(t, test.expected, flamegraph.ParseStack(test.line))
		})
	}
}

const sampleOut = `Analysis of sampling app (pid 42) every 1 millisecond
Process:         app [42]
Call graph:
    10 Thread_100   DispatchQueue_1: com.apple.main-thread  (serial)
    + 10 start  (in libdyld.dylib) + 1  [0x1]
    +   10 main  (in app) + 52  [0x2]
    +     6 compute  (in app) + 20  [0x3]
    +     ! 4 std::vector<int, std::allocator<int> >::push_back  (in app) + 8  [0x4]
    +     3 idle  (in app) + 4  [0x5]

Total number in stack (recursive counted multiple times):
    6 compute  (in app) + 20  [0x3]
`

func TestCollapseSample(t *testing.T) {
	stacks, err := flamegraph.CollapseSample(strings.NewReader(sampleOut), 0)
	require.NoError(t, err)

	base := []string{"Thread_100", "start", "main"}
	with := func(frames ...string) []string {
		return append(append([]string(nil), base...), frames...)
	}
	require.Equal(t, []flamegraph.Stack{
		{Frames: with(), Count: 1},
		{Frames: with("compute"), Count: 2},
		{Frames: with("compute", "std::vector<int,_std::allocator<int>_>::push_back"), Count: 4},
		{Frames: with("idle"), Count: 3},
	}, stacks)

	tree := flamegraph.BuildStacks(stacks)
	require.Equal(t, uint64(10), tree.Total())

	format := flamegraph.DetectFormat([]byte(sampleOut))
	require.Equal(t, flamegraph.InputSample, format)
}

func TestCollapsedSymbolsRoundTrip(t *testing.T) {
	out := "\n              app`" + "std::map<int, int>::find;x+0x10\n" +
		"              app`main+0x12\n               5\n"
	stacks, err := flamegraph.CollapseDtrace(strings.NewReader(out), 0)
	require.NoError(t, err)
	require.Equal(t, []flamegraph.Stack{
		{Frames: []string{"main", "std::map<int,_int>::find_x"}, Count: 5},
	}, stacks)

	var buf bytes.Buffer
	require.NoError(t, flamegraph.WriteCollapsed(&buf, stacks))
	again, err := flamegraph.ReadCollapsed(&buf, 0)
	require.NoError(t, err)
	require.Equal(t, stacks, again)
}

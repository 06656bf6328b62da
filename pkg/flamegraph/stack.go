package flamegraph

import (
	"slices"
	"strconv"
	"strings"
)

// Stack is one folded stack record: frames ordered root first and the
// number of times the stack was observed.
type Stack struct {
	Frames []string
	Count  uint64
}

// ParseStack parses a folded line "f1;f2;f3 count". The frames field ends
// at the first space and the count is the next space delimited token; a
// missing or malformed count means 1. An empty frames field yields a stack
// without frames.
func ParseStack(line string) Stack {
	frames, rest, hasCount := strings.Cut(line, " ")

	count := uint64(1)
	if hasCount {
		tok, _, _ := strings.Cut(rest, " ")
		if n, err := strconv.ParseUint(tok, 10, 64); err == nil {
			count = n
		}
	}

	s := Stack{Count: count}
	if frames != "" {
		s.Frames = strings.Split(frames, ";")
	}
	return s
}

// String returns the folded form of the stack.
func (s Stack) String() string {
	return strings.Join(s.Frames, ";") + " " + strconv.FormatUint(s.Count, 10)
}

// SortStacks orders stacks frame by frame so that stacks sharing a prefix
// are adjacent, which is what the builder expects. Comparing whole frames
// rather than joined lines keeps "a;b" and "a;b;c" together even when a
// sibling such as "a;b!" sorts between them byte-wise.
func SortStacks(stacks []Stack) {
	slices.SortStableFunc(stacks, func(a, b Stack) int {
		return slices.Compare(a.Frames, b.Frames)
	})
}

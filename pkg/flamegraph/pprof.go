package flamegraph

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"
	"github.com/pkg/errors"
)

// CollapsePprof folds the samples of a pprof profile. sampleIndex selects
// the value column; a negative index picks the last one, which is the
// primary type for most Go profiles (cpu nanoseconds, inuse_space).
func CollapsePprof(r io.Reader, sampleIndex int) ([]Stack, error) {
	p, err := profile.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing pprof profile")
	}
	return collapseProfile(p, sampleIndex)
}

func collapseProfile(p *profile.Profile, sampleIndex int) ([]Stack, error) {
	if len(p.SampleType) == 0 {
		return nil, errors.New("pprof profile has no sample types")
	}
	if sampleIndex < 0 {
		sampleIndex = len(p.SampleType) - 1
	}
	if sampleIndex >= len(p.SampleType) {
		return nil, errors.Errorf("sample index %d out of range, profile has %d sample types",
			sampleIndex, len(p.SampleType))
	}

	f := newFolder()
	var frames []string
	for _, s := range p.Sample {
		v := s.Value[sampleIndex]
		if v <= 0 {
			continue
		}
		frames = frames[:0]
		// Locations are leaf first; within a location the last line is the
		// outermost inlined caller.
		for i := len(s.Location) - 1; i >= 0; i-- {
			loc := s.Location[i]
			if len(loc.Line) == 0 {
				frames = append(frames, fmt.Sprintf("0x%x", loc.Address))
				continue
			}
			for j := len(loc.Line) - 1; j >= 0; j-- {
				frames = append(frames, functionName(loc.Line[j]))
			}
		}
		f.add(frames, uint64(v))
	}
	return f.stacks(), nil
}

func functionName(l profile.Line) string {
	if l.Function == nil || l.Function.Name == "" {
		return "<unknown>"
	}
	return l.Function.Name
}

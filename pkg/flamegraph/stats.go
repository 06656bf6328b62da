package flamegraph

import "sort"

// FrameStat aggregates every node carrying the same frame name.
type FrameStat struct {
	Name string `json:"name"`
	Self uint64 `json:"self"`
	// Total counts each stack once even when the frame recurses.
	Total uint64 `json:"total"`
}

// Summary describes the shape of a built tree.
type Summary struct {
	Total    uint64
	Nodes    int
	Leaves   int
	MaxDepth int
	Top      []FrameStat
}

// Summarize computes tree statistics and the topN frames by self value.
func Summarize(t *Tree, topN int) Summary {
	s := Summary{
		Total: t.Total(),
		Nodes: t.Len() - 1,
	}

	stats := make(map[string]*FrameStat)
	var onPath []NodeID
	active := make(map[string]int)

	t.Walk(func(id NodeID, depth int) bool {
		// unwind the path to the parent of id
		for len(onPath) >= depth && len(onPath) > 0 {
			last := onPath[len(onPath)-1]
			active[t.nodes[last].Name]--
			onPath = onPath[:len(onPath)-1]
		}
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		if id == RootID {
			return true
		}

		n := &t.nodes[id]
		if len(n.Children) == 0 {
			s.Leaves++
		}
		fs, ok := stats[n.Name]
		if !ok {
			fs = &FrameStat{Name: n.Name}
			stats[n.Name] = fs
		}
		fs.Self += t.Self(id)
		if active[n.Name] == 0 {
			fs.Total += n.Value
		}
		active[n.Name]++
		onPath = append(onPath, id)
		return true
	})

	top := make([]FrameStat, 0, len(stats))
	for _, fs := range stats {
		top = append(top, *fs)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Self != top[j].Self {
			return top[i].Self > top[j].Self
		}
		return top[i].Name < top[j].Name
	})
	if topN >= 0 && len(top) > topN {
		top = top[:topN]
	}
	s.Top = top
	return s
}

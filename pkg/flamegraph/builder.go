package flamegraph

// Builder turns an ordered sequence of folded stacks into a Tree in one
// pass. Records must be grouped by shared prefix (sorted input): the
// builder only compares each frame with the frame at the same depth of
// the previous record and never looks siblings up by name. Ungrouped
// input is not rejected; it produces duplicate sibling subtrees.
type Builder struct {
	tree *Tree
	path []NodeID
}

// NewBuilder returns a builder positioned at the root of an empty tree.
func NewBuilder() *Builder {
	return &Builder{
		tree: NewTree(),
		path: []NodeID{RootID},
	}
}

// AddLine parses a folded line and adds it.
func (b *Builder) AddLine(line string) {
	s := ParseStack(line)
	b.Add(s.Frames, s.Count)
}

// Add adds count to every node on the route to frames, creating the
// nodes that diverge from the previous record's route.
func (b *Builder) Add(frames []string, count uint64) {
	nodes := b.tree.nodes
	for i, name := range frames {
		depth := i + 1
		if depth < len(b.path) && nodes[b.path[depth]].Name == name {
			continue
		}
		b.path = b.path[:depth]
		id := b.tree.addChild(b.path[depth-1], name)
		nodes = b.tree.nodes
		b.path = append(b.path, id)
	}

	if len(b.path) > len(frames)+1 {
		b.path = b.path[:len(frames)+1]
	}

	for _, id := range b.path {
		nodes[id].Value += count
	}
}

// Tree finalizes the build and returns the tree. The builder must not be
// used afterwards.
func (b *Builder) Tree() *Tree {
	t := b.tree
	b.tree = nil
	b.path = nil
	return t
}

// Build parses folded lines in order and returns the resulting tree.
func Build(lines []string) *Tree {
	b := NewBuilder()
	for _, line := range lines {
		b.AddLine(line)
	}
	return b.Tree()
}

// BuildStacks builds a tree from already parsed stacks, in order.
func BuildStacks(stacks []Stack) *Tree {
	b := NewBuilder()
	for _, s := range stacks {
		b.Add(s.Frames, s.Count)
	}
	return b.Tree()
}

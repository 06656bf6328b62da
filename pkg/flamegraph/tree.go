package flamegraph

// NodeID addresses a node inside the Tree that owns it.
type NodeID int

// RootID is the synthetic root every Tree starts with.
const RootID NodeID = 0

// Node is one frame at a fixed position in the aggregated call tree.
// Value is cumulative: it includes the counts of every stack passing
// through the node, not only the stacks ending at it.
type Node struct {
	Name     string
	Value    uint64
	Children []NodeID
}

// Tree is an arena of nodes. Children are stored in the order their
// names were first seen while building.
type Tree struct {
	nodes []Node
}

// NewTree returns a tree holding only the unnamed root.
func NewTree() *Tree {
	return &Tree{nodes: []Node{{}}}
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Total returns the root value, i.e. the sum of all record counts.
func (t *Tree) Total() uint64 {
	return t.nodes[RootID].Value
}

// Node returns the node stored at id. The Children slice is shared with
// the tree and must not be modified.
func (t *Tree) Node(id NodeID) Node {
	return t.nodes[id]
}

// Self returns the part of a node's value not accounted for by its children.
func (t *Tree) Self(id NodeID) uint64 {
	n := &t.nodes[id]
	var children uint64
	for _, c := range n.Children {
		children += t.nodes[c].Value
	}
	if children > n.Value {
		return 0
	}
	return n.Value - children
}

// Walk visits nodes depth-first in stored order. Returning false from fn
// skips the subtree of the visited node.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	t.walk(RootID, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(NodeID, int) bool) {
	if !fn(id, depth) {
		return
	}
	for _, c := range t.nodes[id].Children {
		t.walk(c, depth+1, fn)
	}
}

// MaxDepth returns the depth of the deepest node; the root is at depth 0.
func (t *Tree) MaxDepth() int {
	max := 0
	t.Walk(func(_ NodeID, depth int) bool {
		if depth > max {
			max = depth
		}
		return true
	})
	return max
}

func (t *Tree) addChild(parent NodeID, name string) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{Name: name})
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	return id
}

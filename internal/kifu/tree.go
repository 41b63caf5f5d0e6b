package kifu

import (
	"maps"
	"reflect"
	"slices"
)

// NodeID indexes a node in the arena of the tree that produced it. IDs are
// only meaningful within one tree and the versions derived from it.
type NodeID int32

// MoveSequence is an ordered line of nodes.
type MoveSequence []NodeID

// MoveNode is one ply of a game record. Forks holds the alternatives to this
// node: every fork starts with a move played at the same ply.
type MoveNode struct {
	Move     *MoveRecord
	Special  Special
	Comments []string
	Forks    []MoveSequence
}

// IsRoot reports whether the node is the starting position.
func (n MoveNode) IsRoot() bool {
	return n.Move == nil && n.Special == ""
}

// Initial describes the starting position. Data carries a custom position
// when Preset is "OTHER" and is passed through untouched.
type Initial struct {
	Preset string         `json:"preset"`
	Data   map[string]any `json:"data,omitempty"`
}

// MoveTree is an immutable game record with variations. Every edit returns
// a new tree and leaves the receiver usable; versions share the nodes they
// did not touch.
type MoveTree struct {
	header   map[string]string
	initial  *Initial
	nodes    []MoveNode
	mainLine MoveSequence
}

// NewTree returns a tree holding only the starting position.
func NewTree(header map[string]string, initial *Initial) MoveTree {
	return MoveTree{
		header:   maps.Clone(header),
		initial:  initial,
		nodes:    []MoveNode{{}},
		mainLine: MoveSequence{0},
	}
}

// Header returns a copy of the record header.
func (t MoveTree) Header() map[string]string {
	return maps.Clone(t.header)
}

func (t MoveTree) Initial() *Initial {
	return t.initial
}

// WithHeader returns a tree with the header replaced.
func (t MoveTree) WithHeader(header map[string]string) MoveTree {
	t.header = maps.Clone(header)
	return t
}

// MainLine returns a copy of the main line. Index 0 is the root.
func (t MoveTree) MainLine() MoveSequence {
	if t.nodes == nil {
		return MoveSequence{0}
	}
	return slices.Clone(t.mainLine)
}

// Node returns the node stored under id. The returned slices belong to the
// tree and must not be modified.
func (t MoveTree) Node(id NodeID) MoveNode {
	if t.nodes == nil {
		return MoveNode{}
	}
	return t.nodes[id]
}

// Root returns the node for the starting position.
func (t MoveTree) Root() MoveNode {
	return t.Node(t.root())
}

func (t MoveTree) root() NodeID {
	if t.nodes == nil {
		return 0
	}
	return t.mainLine[0]
}

// normalized gives the zero MoveTree a root so it behaves like NewTree(nil, nil).
func (t MoveTree) normalized() MoveTree {
	if t.nodes == nil {
		return NewTree(t.header, t.initial)
	}
	return t
}

// detach prepares t for appending nodes. Trees derived from the same version
// each get their own backing array on the first append.
func (t MoveTree) detach() MoveTree {
	t = t.normalized()
	t.nodes = slices.Clip(t.nodes)
	return t
}

func (t *MoveTree) alloc(n MoveNode) NodeID {
	t.nodes = append(t.nodes, n)
	return NodeID(len(t.nodes) - 1)
}

// segment is one stretch of the line being walked: the main line, or a fork
// entered at ply start.
type segment struct {
	seq    MoveSequence
	start  int
	parent int
	fork   int
}

// replaceSequence stores seq in place of segs[si] and copies every node on
// the path back to the main line.
func (t MoveTree) replaceSequence(segs []segment, si int, seq MoveSequence) MoveTree {
	s := segs[si]
	if s.parent < 0 {
		t.mainLine = seq
		return t
	}
	p := segs[s.parent]
	owner := t.nodes[p.seq[s.start-p.start]]
	owner.Forks = slices.Clone(owner.Forks)
	owner.Forks[s.fork] = seq
	return t.replaceNode(segs, s.parent, s.start, owner)
}

// replaceNode stores n as the node at ply te of segs[si].
func (t MoveTree) replaceNode(segs []segment, si int, te int, n MoveNode) MoveTree {
	s := segs[si]
	id := t.alloc(n)
	seq := slices.Clone(s.seq)
	seq[te-s.start] = id
	return t.replaceSequence(segs, si, seq)
}

// ContentEqual reports whether a and b describe the same record, ignoring
// how their nodes are laid out in memory.
func ContentEqual(a, b MoveTree) bool {
	a, b = a.normalized(), b.normalized()
	if !maps.Equal(a.header, b.header) || !initialEqual(a.initial, b.initial) {
		return false
	}
	return sequenceEqual(a, a.mainLine, b, b.mainLine)
}

func initialEqual(a, b *Initial) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Preset != b.Preset {
		return false
	}
	return reflect.DeepEqual(a.Data, b.Data)
}

func sequenceEqual(a MoveTree, x MoveSequence, b MoveTree, y MoveSequence) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !nodeEqual(a, a.nodes[x[i]], b, b.nodes[y[i]]) {
			return false
		}
	}
	return true
}

func nodeEqual(a MoveTree, n MoveNode, b MoveTree, m MoveNode) bool {
	if n.Special != m.Special || !slices.Equal(n.Comments, m.Comments) {
		return false
	}
	if (n.Move == nil) != (m.Move == nil) {
		return false
	}
	if n.Move != nil && !recordEqual(*n.Move, *m.Move) {
		return false
	}
	if len(n.Forks) != len(m.Forks) {
		return false
	}
	for k := range n.Forks {
		if !sequenceEqual(a, n.Forks[k], b, m.Forks[k]) {
			return false
		}
	}
	return true
}

// recordEqual compares every stored field, unlike MoveEquals which decides
// whether two records denote the same move.
func recordEqual(a, b MoveRecord) bool {
	if (a.From == nil) != (b.From == nil) || (a.From != nil && *a.From != *b.From) {
		return false
	}
	if (a.Promote == nil) != (b.Promote == nil) || (a.Promote != nil && *a.Promote != *b.Promote) {
		return false
	}
	return a.Color == b.Color && a.To == b.To && a.Piece == b.Piece &&
		a.Same == b.Same && a.Capture == b.Capture && a.Relative == b.Relative
}

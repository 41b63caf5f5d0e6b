package kifu

// TreeWalker is a stateful position over one tree version. It is not safe
// for concurrent use; create one walker per goroutine.
type TreeWalker struct {
	tree  MoveTree
	segs  []segment
	tesuu int
	path  []ForkPointer
}

func NewTreeWalker(tree MoveTree) *TreeWalker {
	w := &TreeWalker{tree: tree.normalized()}
	w.reset()
	return w
}

func (w *TreeWalker) reset() {
	w.segs = append(w.segs[:0], segment{seq: w.tree.mainLine, parent: -1})
	w.tesuu = 0
	w.path = w.path[:0]
}

// Tesuu returns the current ply.
func (w *TreeWalker) Tesuu() int {
	return w.tesuu
}

// ForkPath returns the fork pointers taken to reach the current ply.
func (w *TreeWalker) ForkPath() ForkPath {
	if len(w.path) == 0 {
		return ForkPath{}
	}
	return ForkPath{entries: append([]ForkPointer(nil), w.path...)}
}

// Cursor returns the current position as a cursor without pending choices.
func (w *TreeWalker) Cursor() Cursor {
	return Cursor{Tesuu: w.tesuu, ForkPointers: w.ForkPath()}
}

// next returns the segment holding the node at ply tesuu+1 and its index
// in that segment.
func (w *TreeWalker) next() (int, int, bool) {
	si := len(w.segs) - 1
	i := w.tesuu + 1 - w.segs[si].start
	return si, i, i < len(w.segs[si].seq)
}

// Next returns the node that Forward would move to.
func (w *TreeWalker) Next() (MoveNode, bool) {
	si, i, ok := w.next()
	if !ok {
		return MoveNode{}, false
	}
	return w.tree.nodes[w.segs[si].seq[i]], true
}

// Forward moves one ply along the current line.
func (w *TreeWalker) Forward() bool {
	if _, _, ok := w.next(); !ok {
		return false
	}
	w.tesuu++
	return true
}

// ForkAndForward moves one ply into fork forkIndex of the next node.
func (w *TreeWalker) ForkAndForward(forkIndex int) bool {
	si, i, ok := w.next()
	if !ok || forkIndex < 0 {
		return false
	}
	forks := w.tree.nodes[w.segs[si].seq[i]].Forks
	if forkIndex >= len(forks) || len(forks[forkIndex]) == 0 {
		return false
	}
	w.tesuu++
	w.segs = append(w.segs, segment{seq: forks[forkIndex], start: w.tesuu, parent: si, fork: forkIndex})
	w.path = append(w.path, ForkPointer{Te: w.tesuu, ForkIndex: forkIndex})
	return true
}

// Backward moves one ply back, leaving a fork when passing its first move.
func (w *TreeWalker) Backward() bool {
	if w.tesuu == 0 {
		return false
	}
	w.tesuu--
	if last := len(w.segs) - 1; w.tesuu < w.segs[last].start {
		w.segs = w.segs[:last]
		w.path = w.path[:len(w.path)-1]
	}
	return true
}

// Goto walks from the root to ply tesuu, taking the fork that ptrs names at
// each ply and the main continuation otherwise. A pointer that does not
// resolve is skipped. The walk stops early when the line ends and the
// reached ply is returned.
func (w *TreeWalker) Goto(tesuu int, ptrs ForkPath) int {
	w.reset()
	for w.tesuu < tesuu {
		if idx, ok := ptrs.At(w.tesuu + 1); ok && w.ForkAndForward(idx) {
			continue
		}
		if !w.Forward() {
			break
		}
	}
	return w.tesuu
}

// Current returns the node at the current ply.
func (w *TreeWalker) Current() MoveNode {
	return w.tree.nodes[w.nodeAt(w.tesuu)]
}

func (w *TreeWalker) nodeAt(te int) NodeID {
	for i := len(w.segs) - 1; i >= 0; i-- {
		if s := w.segs[i]; te >= s.start {
			return s.seq[te-s.start]
		}
	}
	return w.tree.root()
}

// Stream returns the nodes from the root to the current ply.
func (w *TreeWalker) Stream() []MoveNode {
	out := make([]MoveNode, 0, w.tesuu+1)
	for te := 0; te <= w.tesuu; te++ {
		out = append(out, w.tree.nodes[w.nodeAt(te)])
	}
	return out
}

// Position returns the moves played from the root to the current ply.
func (w *TreeWalker) Position() Position {
	pos := Position{Initial: w.tree.initial}
	for te := 1; te <= w.tesuu; te++ {
		if m := w.tree.nodes[w.nodeAt(te)].Move; m != nil {
			pos.Moves = append(pos.Moves, *m)
		}
	}
	return pos
}

// MaterializeStream returns the nodes from the root to the ply c reaches.
func MaterializeStream(tree MoveTree, c Cursor) []MoveNode {
	w := NewTreeWalker(tree)
	w.Goto(c.Tesuu, c.ForkPointers)
	return w.Stream()
}

package kifu

import (
	"fmt"
	"slices"
)

// InsertResult is the outcome of adding a move at a cursor.
type InsertResult struct {
	Tree   MoveTree
	Cursor Cursor
	// UsedExisting is set when the move matched a node already in the tree.
	UsedExisting bool
	// CreatedNew is set when the move opened a new fork.
	CreatedNew bool
}

// AppendOrMergeMove plays move after the node c reaches. A move that is
// already recorded there, as the main continuation or as a fork, is
// followed instead of duplicated and the tree is returned unchanged.
func AppendOrMergeMove(tree MoveTree, c Cursor, move MoveRecord, oracle ReachOracle) (InsertResult, error) {
	if err := move.Validate(); err != nil {
		return InsertResult{}, err
	}
	w := NewTreeWalker(tree)
	w.Goto(c.Tesuu, c.ForkPointers)
	if err := lineOpen(w); err != nil {
		return InsertResult{}, err
	}
	pos := w.Position()
	move = DisambiguateDrop(move.clone(), pos, oracle)
	return appendOrMerge(w, c, MoveNode{Move: &move}, func(n MoveNode) bool {
		return n.Move != nil && MoveEquals(*n.Move, move, pos, oracle)
	}), nil
}

// AppendSpecial ends the line at c with a terminal marker such as resignation.
func AppendSpecial(tree MoveTree, c Cursor, special Special) (InsertResult, error) {
	if !special.Valid() {
		return InsertResult{}, fmt.Errorf("%w: special %q", ErrInvalidMove, special)
	}
	w := NewTreeWalker(tree)
	w.Goto(c.Tesuu, c.ForkPointers)
	if err := lineOpen(w); err != nil {
		return InsertResult{}, err
	}
	return appendOrMerge(w, c, MoveNode{Special: special}, func(n MoveNode) bool {
		return n.Move == nil && n.Special == special
	}), nil
}

// lineOpen rejects appending after a terminal marker.
func lineOpen(w *TreeWalker) error {
	if sp := w.Current().Special; sp != "" {
		return fmt.Errorf("%w: line ends with %s at ply %d", ErrInvalidMove, sp, w.Tesuu())
	}
	return nil
}

func appendOrMerge(w *TreeWalker, c Cursor, node MoveNode, match func(MoveNode) bool) InsertResult {
	tree := w.tree
	si, i, ok := w.next()
	if !ok {
		s := w.segs[si]
		t := tree.detach()
		id := t.alloc(node)
		t = t.replaceSequence(w.segs, si, append(slices.Clip(s.seq), id))
		return InsertResult{Tree: t, Cursor: Cursor{Tesuu: w.tesuu + 1, ForkPointers: w.ForkPath()}}
	}

	head := tree.nodes[w.segs[si].seq[i]]
	if match(head) {
		w.Forward()
		return existing(tree, w, c)
	}
	for k, fork := range head.Forks {
		if match(tree.nodes[fork[0]]) {
			w.ForkAndForward(k)
			return existing(tree, w, c)
		}
	}

	t := tree.detach()
	id := t.alloc(node)
	head.Forks = append(slices.Clip(head.Forks), MoveSequence{id})
	t = t.replaceNode(w.segs, si, w.tesuu+1, head)
	te := w.tesuu + 1
	return InsertResult{
		Tree: t,
		Cursor: Cursor{
			Tesuu:        te,
			ForkPointers: w.ForkPath().With(ForkPointer{Te: te, ForkIndex: len(head.Forks) - 1}),
		},
		CreatedNew: true,
	}
}

func existing(tree MoveTree, w *TreeWalker, c Cursor) InsertResult {
	return InsertResult{
		Tree: tree,
		Cursor: Cursor{
			Tesuu:        w.Tesuu(),
			ForkPointers: RetainFuturePointers(w.ForkPath(), c.ForkPointers, w.Tesuu()),
		},
		UsedExisting: true,
	}
}

// SetComments replaces the comments of the node c reaches.
func SetComments(tree MoveTree, c Cursor, comments []string) (MoveTree, Cursor) {
	w := NewTreeWalker(tree)
	w.Goto(c.Tesuu, c.ForkPointers)
	n := w.Current()
	if slices.Equal(n.Comments, comments) {
		return w.tree, Navigate(tree, c, w.Tesuu())
	}
	n.Comments = slices.Clone(comments)
	t := w.tree.detach()
	t = t.replaceNode(w.segs, len(w.segs)-1, w.tesuu, n)
	return t, Navigate(t, c, w.Tesuu())
}

// TruncateAfter removes the continuation after the node c reaches. It
// refuses when the removed part holds variations, which would otherwise
// be lost.
func TruncateAfter(tree MoveTree, c Cursor) (MoveTree, Cursor, error) {
	w := NewTreeWalker(tree)
	w.Goto(c.Tesuu, c.ForkPointers)
	si, i, ok := w.next()
	if !ok {
		return w.tree, w.Cursor(), nil
	}
	s := w.segs[si]
	for _, id := range s.seq[i:] {
		if len(w.tree.nodes[id].Forks) > 0 {
			return tree, c, fmt.Errorf("%w: after ply %d", ErrHasVariations, w.tesuu)
		}
	}
	t := w.tree.detach()
	t = t.replaceSequence(w.segs, si, slices.Clone(s.seq[:i]))
	return t, w.Cursor(), nil
}

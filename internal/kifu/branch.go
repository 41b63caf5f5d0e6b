package kifu

import (
	"fmt"
	"slices"
)

// BranchPoint names the place where continuations meet: ply Te, reached by
// following Prefix. Every prefix pointer has a ply below Te.
type BranchPoint struct {
	Te     int      `json:"te"`
	Prefix ForkPath `json:"prefix"`
}

// BranchInfo describes a resolved branch point.
type BranchInfo struct {
	Point BranchPoint
	// Forks is the number of forks; valid branch indices are 0..Forks.
	Forks int
	// Main is the node of the main continuation at the branch point.
	Main MoveNode
}

type resolvedBranch struct {
	walker *TreeWalker
	si     int
	at     int
	owner  MoveNode
}

// ResolveBranchPoint checks that bp names a node of tree. Unlike cursor
// navigation it does not fall back to the main line: a prefix pointer that
// does not resolve is an error.
func ResolveBranchPoint(tree MoveTree, bp BranchPoint) (BranchInfo, error) {
	r, err := resolve(tree, bp)
	if err != nil {
		return BranchInfo{}, err
	}
	return BranchInfo{Point: bp, Forks: len(r.owner.Forks), Main: r.owner}, nil
}

func resolve(tree MoveTree, bp BranchPoint) (resolvedBranch, error) {
	if bp.Te < 1 {
		return resolvedBranch{}, fmt.Errorf("%w: ply %d", ErrInvalidBranchPoint, bp.Te)
	}
	if bp.Prefix.After(bp.Te-1).Len() > 0 {
		return resolvedBranch{}, fmt.Errorf("%w: prefix reaches ply %d", ErrInvalidBranchPoint, bp.Te)
	}
	w := NewTreeWalker(tree)
	for w.tesuu < bp.Te-1 {
		te := w.tesuu + 1
		if idx, ok := bp.Prefix.At(te); ok {
			if !w.ForkAndForward(idx) {
				return resolvedBranch{}, fmt.Errorf("%w: no fork %d at ply %d", ErrInvalidBranchPoint, idx, te)
			}
			continue
		}
		if !w.Forward() {
			return resolvedBranch{}, fmt.Errorf("%w: line ends before ply %d", ErrInvalidBranchPoint, te)
		}
	}
	si, i, ok := w.next()
	if !ok {
		return resolvedBranch{}, fmt.Errorf("%w: no node at ply %d", ErrInvalidBranchPoint, bp.Te)
	}
	return resolvedBranch{walker: w, si: si, at: i, owner: w.tree.nodes[w.segs[si].seq[i]]}, nil
}

// SwapBranches exchanges continuations a and b at bp, where 0 is the main
// continuation and i > 0 is fork i-1. When 0 takes part, the fork becomes
// the main line from bp on and the old main tail becomes that fork. The
// cursor is rewritten to keep showing the content it was showing.
func SwapBranches(tree MoveTree, c Cursor, bp BranchPoint, a, b int) (MoveTree, Cursor, error) {
	r, err := resolve(tree, bp)
	if err != nil {
		return tree, c, err
	}
	k := len(r.owner.Forks)
	if a == b || a < 0 || b < 0 || a > k || b > k {
		return tree, c, fmt.Errorf("%w: swap %d and %d of %d", ErrInvalidBranchIndex, a, b, k+1)
	}
	if a > b {
		a, b = b, a
	}

	w := r.walker
	t := w.tree.detach()
	if a > 0 {
		owner := r.owner
		owner.Forks = slices.Clone(owner.Forks)
		owner.Forks[a-1], owner.Forks[b-1] = owner.Forks[b-1], owner.Forks[a-1]
		t = t.replaceNode(w.segs, r.si, bp.Te, owner)
	} else {
		s := w.segs[r.si]
		fork := r.owner.Forks[b-1]

		demoted := r.owner
		demoted.Forks = nil
		demotedID := t.alloc(demoted)

		forks := slices.Clone(r.owner.Forks)
		forks[b-1] = append(MoveSequence{demotedID}, s.seq[r.at+1:]...)
		promoted := t.nodes[fork[0]]
		promoted.Forks = forks
		promotedID := t.alloc(promoted)

		seq := make(MoveSequence, 0, r.at+len(fork))
		seq = append(seq, s.seq[:r.at]...)
		seq = append(seq, promotedID)
		seq = append(seq, fork[1:]...)
		t = t.replaceSequence(w.segs, r.si, seq)
	}
	return t, repairSwap(c, bp, a, b), nil
}

func repairSwap(c Cursor, bp BranchPoint, a, b int) Cursor {
	if !throughBranchPoint(c, bp) {
		return c
	}
	cur := 0
	if idx, ok := c.ForkPointers.At(bp.Te); ok {
		cur = idx + 1
	} else if c.Tesuu < bp.Te {
		// No choice has been made at bp yet.
		return c
	}
	var next int
	switch cur {
	case a:
		next = b
	case b:
		next = a
	default:
		return c
	}
	path := c.ForkPointers.Without(bp.Te)
	if next > 0 {
		path = path.With(ForkPointer{Te: bp.Te, ForkIndex: next - 1})
	}
	return Cursor{Tesuu: c.Tesuu, ForkPointers: path}
}

// DeleteBranch removes fork target-1 at bp. The main continuation cannot be
// deleted; swap a fork into its place first. Cursor pointers at bp with a
// higher index shift down by one, and a cursor inside the removed fork
// moves back to the branch point.
func DeleteBranch(tree MoveTree, c Cursor, bp BranchPoint, target int) (MoveTree, Cursor, error) {
	if target == 0 {
		return tree, c, ErrCannotDeleteMain
	}
	r, err := resolve(tree, bp)
	if err != nil {
		return tree, c, err
	}
	k := len(r.owner.Forks)
	if target < 0 || target > k {
		return tree, c, fmt.Errorf("%w: delete %d of %d", ErrInvalidBranchIndex, target, k+1)
	}

	owner := r.owner
	owner.Forks = slices.Delete(slices.Clone(owner.Forks), target-1, target)
	if len(owner.Forks) == 0 {
		owner.Forks = nil
	}
	w := r.walker
	t := w.tree.detach()
	t = t.replaceNode(w.segs, r.si, bp.Te, owner)
	return t, repairDelete(c, bp, target-1), nil
}

func repairDelete(c Cursor, bp BranchPoint, removed int) Cursor {
	if !throughBranchPoint(c, bp) {
		return c
	}
	idx, ok := c.ForkPointers.At(bp.Te)
	switch {
	case !ok || idx < removed:
		return c
	case idx == removed && c.Tesuu >= bp.Te:
		return Cursor{Tesuu: bp.Te, ForkPointers: bp.Prefix}
	case idx == removed:
		// Pending choices into the removed fork go with it.
		return Cursor{Tesuu: c.Tesuu, ForkPointers: c.ForkPointers.UpTo(bp.Te - 1)}
	default:
		path := c.ForkPointers.With(ForkPointer{Te: bp.Te, ForkIndex: idx - 1})
		return Cursor{Tesuu: c.Tesuu, ForkPointers: path}
	}
}

// throughBranchPoint reports whether c follows the same line as bp up to it.
func throughBranchPoint(c Cursor, bp BranchPoint) bool {
	return c.ForkPointers.UpTo(bp.Te - 1).Equal(bp.Prefix)
}

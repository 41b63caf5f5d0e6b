package kifu

import (
	"fmt"
	"maps"
	"slices"
)

// Document is the interchange form of a record, shaped like JSON Kifu
// Format: moves[0] is the starting position and every later entry carries
// a move or a terminal marker, with alternatives nested under forks.
type Document struct {
	Header  map[string]string `json:"header"`
	Initial *Initial          `json:"initial,omitempty"`
	Moves   []DocumentMove    `json:"moves"`
}

type DocumentMove struct {
	Comments []string         `json:"comments,omitempty"`
	Move     *MoveRecord      `json:"move,omitempty"`
	Special  Special          `json:"special,omitempty"`
	Forks    [][]DocumentMove `json:"forks,omitempty"`
}

// Import builds a tree from doc. Export(Import(doc)) is structurally equal
// to doc. moves[0], the starting position, is required.
func Import(doc Document) (MoveTree, error) {
	t := MoveTree{
		header:  maps.Clone(doc.Header),
		initial: doc.Initial,
	}
	if len(doc.Moves) == 0 {
		return MoveTree{}, fmt.Errorf("%w: moves[0] must be the starting position", ErrInvalidDocument)
	}
	root := doc.Moves[0]
	if root.Move != nil || root.Special != "" || len(root.Forks) > 0 {
		return MoveTree{}, fmt.Errorf("%w: moves[0] must be the starting position", ErrInvalidDocument)
	}
	rootID := t.alloc(MoveNode{Comments: slices.Clone(root.Comments)})
	rest, err := t.importSequence(doc.Moves[1:], "moves", 1, false)
	if err != nil {
		return MoveTree{}, err
	}
	t.mainLine = append(MoveSequence{rootID}, rest...)
	return t, nil
}

func (t *MoveTree) importSequence(moves []DocumentMove, where string, offset int, isFork bool) (MoveSequence, error) {
	seq := make(MoveSequence, 0, len(moves))
	for i, dm := range moves {
		at := fmt.Sprintf("%s[%d]", where, i+offset)
		if err := validateDocumentMove(dm); err != nil {
			return nil, fmt.Errorf("%w at %s", err, at)
		}
		if dm.Special != "" && i != len(moves)-1 {
			return nil, fmt.Errorf("%w: %s ends the line but moves follow at %s", ErrInvalidDocument, dm.Special, at)
		}
		if isFork && i == 0 && len(dm.Forks) > 0 {
			return nil, fmt.Errorf("%w: first move of a fork has forks at %s", ErrInvalidDocument, at)
		}
		n := MoveNode{
			Special:  dm.Special,
			Comments: slices.Clone(dm.Comments),
		}
		if dm.Move != nil {
			m := dm.Move.clone()
			n.Move = &m
		}
		if dm.Forks != nil {
			n.Forks = make([]MoveSequence, len(dm.Forks))
			for k, fork := range dm.Forks {
				if len(fork) == 0 {
					return nil, fmt.Errorf("%w: empty fork at %s.forks[%d]", ErrInvalidDocument, at, k)
				}
				sub, err := t.importSequence(fork, fmt.Sprintf("%s.forks[%d]", at, k), 0, true)
				if err != nil {
					return nil, err
				}
				n.Forks[k] = sub
			}
		}
		seq = append(seq, t.alloc(n))
	}
	return seq, nil
}

func validateDocumentMove(dm DocumentMove) error {
	switch {
	case dm.Move != nil && dm.Special != "":
		return fmt.Errorf("%w: entry has both a move and a special", ErrInvalidDocument)
	case dm.Move == nil && dm.Special == "":
		return fmt.Errorf("%w: entry has neither a move nor a special", ErrInvalidDocument)
	case dm.Special != "" && !dm.Special.Valid():
		return fmt.Errorf("%w: unknown special %q", ErrInvalidDocument, dm.Special)
	case dm.Move != nil:
		if err := dm.Move.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	return nil
}

// Export returns the interchange form of t.
func Export(t MoveTree) Document {
	t = t.normalized()
	return Document{
		Header:  maps.Clone(t.header),
		Initial: t.initial,
		Moves:   t.exportSequence(t.mainLine),
	}
}

func (t MoveTree) exportSequence(seq MoveSequence) []DocumentMove {
	out := make([]DocumentMove, 0, len(seq))
	for _, id := range seq {
		n := t.nodes[id]
		dm := DocumentMove{
			Special:  n.Special,
			Comments: slices.Clone(n.Comments),
		}
		if n.Move != nil {
			m := n.Move.clone()
			dm.Move = &m
		}
		if n.Forks != nil {
			dm.Forks = make([][]DocumentMove, len(n.Forks))
			for k, fork := range n.Forks {
				dm.Forks[k] = t.exportSequence(fork)
			}
		}
		out = append(out, dm)
	}
	return out
}

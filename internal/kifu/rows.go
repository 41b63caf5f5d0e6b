package kifu

// InitialPositionText labels the row for the starting position.
const InitialPositionText = "開始局面"

// Row is one line of the move list shown next to the board.
type Row struct {
	Te           int    `json:"te"`
	NotationText string `json:"notationText"`
	// MainAlternativeText and ForkAlternativeTexts are only set at a branch
	// point, listing every continuation recorded there.
	MainAlternativeText  string   `json:"mainAlternativeText,omitempty"`
	ForkAlternativeTexts []string `json:"forkAlternativeTexts,omitempty"`
	// SelectedForkIndex is -1 when the main continuation is followed.
	SelectedForkIndex int  `json:"selectedForkIndex"`
	IsActiveRow       bool `json:"isActiveRow"`
	CommentCount      int  `json:"commentCount"`
}

// BuildRows lists the line c is on from the root to its end, following the
// pending fork choices of c past its current ply.
func BuildRows(tree MoveTree, c Cursor) []Row {
	active := NewTreeWalker(tree).Goto(c.Tesuu, c.ForkPointers)

	w := NewTreeWalker(tree)
	root := w.Current()
	rows := []Row{{
		Te:                0,
		NotationText:      InitialPositionText,
		SelectedForkIndex: -1,
		IsActiveRow:       active == 0,
		CommentCount:      len(root.Comments),
	}}

	var prev *MoveRecord
	for {
		head, ok := w.Next()
		if !ok {
			break
		}
		te := w.Tesuu() + 1
		selected := -1
		if idx, ok := c.ForkPointers.At(te); ok && w.ForkAndForward(idx) {
			selected = idx
		} else {
			w.Forward()
		}
		node := w.Current()
		row := Row{
			Te:                te,
			NotationText:      NotationText(node, prev),
			SelectedForkIndex: selected,
			IsActiveRow:       te == active,
			CommentCount:      len(node.Comments),
		}
		if len(head.Forks) > 0 {
			row.MainAlternativeText = NotationText(head, prev)
			row.ForkAlternativeTexts = make([]string, len(head.Forks))
			for k, fork := range head.Forks {
				row.ForkAlternativeTexts[k] = NotationText(w.tree.nodes[fork[0]], prev)
			}
		}
		rows = append(rows, row)
		prev = node.Move
	}
	return rows
}

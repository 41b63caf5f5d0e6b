package kifu

// Position is the state a move is played from: the starting position and
// the moves leading up to it.
type Position struct {
	Initial *Initial
	Moves   []MoveRecord
}

// ReachOracle answers whether a piece of the given kind and color already on
// the board could move to the target square. It settles whether a record
// without an origin square is a drop or an abbreviated board move.
type ReachOracle interface {
	CanReach(pos Position, piece PieceKind, color Color, to Square) bool
}

// ReachFunc adapts a function to ReachOracle.
type ReachFunc func(pos Position, piece PieceKind, color Color, to Square) bool

func (f ReachFunc) CanReach(pos Position, piece PieceKind, color Color, to Square) bool {
	return f(pos, piece, color, to)
}

// MoveEquals reports whether a and b denote the same move when played from
// pos. A record without an origin is a drop and never matches a board move.
// Records that both omit the origin are the same drop unless a board piece
// could also reach the square; in that case they match only when both carry
// the explicit drop marker.
func MoveEquals(a, b MoveRecord, pos Position, oracle ReachOracle) bool {
	if a.To != b.To || a.Piece != b.Piece || a.Color != b.Color {
		return false
	}
	switch {
	case a.From != nil && b.From != nil:
		return *a.From == *b.From && a.Promotes() == b.Promotes()
	case a.From == nil && b.From == nil:
		if oracle == nil || !oracle.CanReach(pos, a.Piece, a.Color, a.To) {
			return true
		}
		return a.ExplicitDrop() && b.ExplicitDrop()
	default:
		return false
	}
}

// DisambiguateDrop marks m as an explicit drop when it has no origin and a
// board piece could also reach its square.
func DisambiguateDrop(m MoveRecord, pos Position, oracle ReachOracle) MoveRecord {
	if m.From != nil || m.ExplicitDrop() || oracle == nil {
		return m
	}
	if oracle.CanReach(pos, m.Piece, m.Color, m.To) {
		m.Relative += string(RelativeDrop)
	}
	return m
}

package kifu

import "fmt"

// Color is the side that makes a move. Black (sente) moves first.
type Color int

const (
	Black Color = iota
	White
)

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceKind uses the two-letter CSA piece codes.
type PieceKind string

const (
	Fu PieceKind = "FU"
	Ky PieceKind = "KY"
	Ke PieceKind = "KE"
	Gi PieceKind = "GI"
	Ki PieceKind = "KI"
	Ka PieceKind = "KA"
	Hi PieceKind = "HI"
	Ou PieceKind = "OU"
	To PieceKind = "TO"
	Ny PieceKind = "NY"
	Nk PieceKind = "NK"
	Ng PieceKind = "NG"
	Um PieceKind = "UM"
	Ry PieceKind = "RY"
)

var promotedKinds = map[PieceKind]PieceKind{
	Fu: To,
	Ky: Ny,
	Ke: Nk,
	Gi: Ng,
	Ka: Um,
	Hi: Ry,
}

var validKinds = map[PieceKind]bool{
	Fu: true, Ky: true, Ke: true, Gi: true, Ki: true, Ka: true, Hi: true,
	Ou: true, To: true, Ny: true, Nk: true, Ng: true, Um: true, Ry: true,
}

// Valid reports whether k is one of the fourteen CSA piece codes.
func (k PieceKind) Valid() bool {
	return validKinds[k]
}

// Promoted returns the promoted form of k, or k itself when it cannot promote.
func (k PieceKind) Promoted() PieceKind {
	if p, ok := promotedKinds[k]; ok {
		return p
	}
	return k
}

// Square is a board coordinate, file X and rank Y, both 1..9.
type Square struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (s Square) Valid() bool {
	return s.X >= 1 && s.X <= 9 && s.Y >= 1 && s.Y <= 9
}

// Relative markers disambiguate moves that share a destination and piece kind.
const (
	RelativeLeft     = 'L'
	RelativeStraight = 'C'
	RelativeRight    = 'R'
	RelativeUp       = 'U'
	RelativeSideways = 'M'
	RelativeDown     = 'D'
	RelativeDrop     = 'H'
)

// MoveRecord is a single recorded move. A nil From means the record carries
// no origin square, which is how drops are written.
type MoveRecord struct {
	Color    Color     `json:"color"`
	From     *Square   `json:"from,omitempty"`
	To       Square    `json:"to"`
	Piece    PieceKind `json:"piece"`
	Same     bool      `json:"same,omitempty"`
	Promote  *bool     `json:"promote,omitempty"`
	Capture  PieceKind `json:"capture,omitempty"`
	Relative string    `json:"relative,omitempty"`
}

// Promotes reports whether the move promotes the piece.
func (m MoveRecord) Promotes() bool {
	return m.Promote != nil && *m.Promote
}

// IsDrop reports whether the record is written as a drop.
func (m MoveRecord) IsDrop() bool {
	return m.From == nil
}

// ExplicitDrop reports whether the record is marked with the drop relative marker.
func (m MoveRecord) ExplicitDrop() bool {
	for _, r := range m.Relative {
		if r == RelativeDrop {
			return true
		}
	}
	return false
}

func (m MoveRecord) Validate() error {
	if m.Color != Black && m.Color != White {
		return fmt.Errorf("%w: color %d", ErrInvalidMove, m.Color)
	}
	if !m.Piece.Valid() {
		return fmt.Errorf("%w: piece %q", ErrInvalidMove, m.Piece)
	}
	if !m.To.Valid() {
		return fmt.Errorf("%w: destination %v", ErrInvalidMove, m.To)
	}
	if m.From != nil && !m.From.Valid() {
		return fmt.Errorf("%w: origin %v", ErrInvalidMove, *m.From)
	}
	if m.From == nil && m.Promotes() {
		return fmt.Errorf("%w: a drop cannot promote", ErrInvalidMove)
	}
	if m.Capture != "" && !m.Capture.Valid() {
		return fmt.Errorf("%w: capture %q", ErrInvalidMove, m.Capture)
	}
	for _, r := range m.Relative {
		switch r {
		case RelativeLeft, RelativeStraight, RelativeRight, RelativeUp, RelativeSideways, RelativeDown, RelativeDrop:
		default:
			return fmt.Errorf("%w: relative marker %q", ErrInvalidMove, r)
		}
	}
	return nil
}

func (m MoveRecord) clone() MoveRecord {
	if m.From != nil {
		from := *m.From
		m.From = &from
	}
	if m.Promote != nil {
		p := *m.Promote
		m.Promote = &p
	}
	return m
}

// Special marks a node that ends a line instead of carrying a move.
type Special string

const (
	SpecialToryo       Special = "TORYO"
	SpecialChudan      Special = "CHUDAN"
	SpecialSennichite  Special = "SENNICHITE"
	SpecialTimeUp      Special = "TIME_UP"
	SpecialIllegalMove Special = "ILLEGAL_MOVE"
	SpecialJishogi     Special = "JISHOGI"
	SpecialKachi       Special = "KACHI"
	SpecialHikiwake    Special = "HIKIWAKE"
	SpecialMatta       Special = "MATTA"
	SpecialTsumi       Special = "TSUMI"
	SpecialFuzumi      Special = "FUZUMI"
	SpecialError       Special = "ERROR"
)

var specialNames = map[Special]string{
	SpecialToryo:       "投了",
	SpecialChudan:      "中断",
	SpecialSennichite:  "千日手",
	SpecialTimeUp:      "切れ負け",
	SpecialIllegalMove: "反則負け",
	SpecialJishogi:     "持将棋",
	SpecialKachi:       "入玉勝ち",
	SpecialHikiwake:    "引き分け",
	SpecialMatta:       "待った",
	SpecialTsumi:       "詰み",
	SpecialFuzumi:      "不詰",
	SpecialError:       "エラー",
}

func (s Special) Valid() bool {
	_, ok := specialNames[s]
	return ok
}

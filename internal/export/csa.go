package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"kifu_editor/internal/kifu"
)

// csaHandicaps lists the white pieces removed from the even position.
var csaHandicaps = map[string]string{
	"KY":   "11KY",
	"KY_R": "91KY",
	"KA":   "22KA",
	"HI":   "82HI",
	"HIKY": "82HI11KY",
	"2":    "82HI22KA",
	"3":    "82HI22KA11KY",
	"4":    "82HI22KA11KY91KY",
	"5":    "82HI22KA11KY91KY21KE",
	"5_L":  "82HI22KA11KY91KY81KE",
	"6":    "82HI22KA11KY91KY21KE81KE",
	"8":    "82HI22KA11KY91KY21KE81KE31GI71GI",
	"10":   "82HI22KA11KY91KY21KE81KE31GI71GI41KI61KI",
}

// CSA renders the main line in CSA format. CSA has no variations, so only
// the main line is written; comments become "'*" lines. A custom starting
// position is written as P1..P9 rows and fails with kifu.ErrInvalidDocument
// when its board data is malformed.
func CSA(tree kifu.MoveTree) (string, error) {
	var b strings.Builder
	b.WriteString("V2.2\n")

	header := tree.Header()
	if v, ok := header["先手"]; ok {
		b.WriteString("N+" + v + "\n")
	}
	if v, ok := header["後手"]; ok {
		b.WriteString("N-" + v + "\n")
	}
	if v, ok := header["棋戦"]; ok {
		b.WriteString("$EVENT:" + v + "\n")
	}

	if err := writeCSAPosition(&b, tree.Initial()); err != nil {
		return "", err
	}

	main := tree.MainLine()
	writeCSAComments(&b, tree.Root().Comments)
	for _, id := range main[1:] {
		n := tree.Node(id)
		b.WriteString(kifu.CSAText(n) + "\n")
		writeCSAComments(&b, n.Comments)
	}
	return b.String(), nil
}

func writeCSAPosition(b *strings.Builder, initial *kifu.Initial) error {
	preset := "HIRATE"
	if initial != nil && initial.Preset != "" {
		preset = initial.Preset
	}
	switch preset {
	case "HIRATE":
		b.WriteString("PI\n+\n")
		return nil
	case "OTHER":
		return writeCSABoard(b, initial.Data)
	}
	removed, ok := csaHandicaps[preset]
	if !ok {
		return fmt.Errorf("%w: unknown preset %q", kifu.ErrInvalidDocument, preset)
	}
	// The handicap giver plays white and moves first.
	b.WriteString("PI" + removed + "\n-\n")
	return nil
}

type boardPiece struct {
	Color *kifu.Color    `json:"color,omitempty"`
	Kind  kifu.PieceKind `json:"kind,omitempty"`
}

// boardData is the custom position layout: board[x-1][y-1] for file x and
// rank y, an empty object for an empty square, and hands[color] counting
// pieces in hand by kind.
type boardData struct {
	Color kifu.Color               `json:"color"`
	Board [][]boardPiece           `json:"board"`
	Hands []map[kifu.PieceKind]int `json:"hands"`
}

var handOrder = []kifu.PieceKind{kifu.Hi, kifu.Ka, kifu.Ki, kifu.Gi, kifu.Ke, kifu.Ky, kifu.Fu}

func parseBoardData(data map[string]any) (boardData, error) {
	var out boardData
	raw, err := json.Marshal(data)
	if err != nil {
		return out, fmt.Errorf("%w: position data: %v", kifu.ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: position data: %v", kifu.ErrInvalidDocument, err)
	}
	if len(out.Board) != 9 {
		return out, fmt.Errorf("%w: position board has %d files", kifu.ErrInvalidDocument, len(out.Board))
	}
	for x, file := range out.Board {
		if len(file) != 9 {
			return out, fmt.Errorf("%w: file %d has %d squares", kifu.ErrInvalidDocument, x+1, len(file))
		}
		for y, p := range file {
			if p.Kind == "" {
				continue
			}
			if !p.Kind.Valid() || p.Color == nil || (*p.Color != kifu.Black && *p.Color != kifu.White) {
				return out, fmt.Errorf("%w: bad piece at %d%d", kifu.ErrInvalidDocument, x+1, y+1)
			}
		}
	}
	if out.Color != kifu.Black && out.Color != kifu.White {
		return out, fmt.Errorf("%w: side to move %d", kifu.ErrInvalidDocument, out.Color)
	}
	if len(out.Hands) > 2 {
		return out, fmt.Errorf("%w: %d hands", kifu.ErrInvalidDocument, len(out.Hands))
	}
	return out, nil
}

func csaSign(c kifu.Color) string {
	if c == kifu.White {
		return "-"
	}
	return "+"
}

func writeCSABoard(b *strings.Builder, data map[string]any) error {
	pos, err := parseBoardData(data)
	if err != nil {
		return err
	}
	for y := 1; y <= 9; y++ {
		fmt.Fprintf(b, "P%d", y)
		for x := 9; x >= 1; x-- {
			p := pos.Board[x-1][y-1]
			if p.Kind == "" {
				b.WriteString(" * ")
				continue
			}
			b.WriteString(csaSign(*p.Color) + string(p.Kind))
		}
		b.WriteString("\n")
	}
	for i, hand := range pos.Hands {
		var pieces strings.Builder
		for _, kind := range handOrder {
			for n := 0; n < hand[kind]; n++ {
				pieces.WriteString("00" + string(kind))
			}
		}
		if pieces.Len() > 0 {
			b.WriteString("P" + csaSign(kifu.Color(i)) + pieces.String() + "\n")
		}
	}
	b.WriteString(csaSign(pos.Color) + "\n")
	return nil
}

func writeCSAComments(b *strings.Builder, comments []string) {
	for _, c := range comments {
		b.WriteString("'*" + c + "\n")
	}
}

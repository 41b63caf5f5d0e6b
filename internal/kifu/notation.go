package kifu

import (
	"fmt"
	"strings"
)

var (
	fileDigits = []string{"", "１", "２", "３", "４", "５", "６", "７", "８", "９"}
	rankKanji  = []string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

	pieceNames = map[PieceKind]string{
		Fu: "歩", Ky: "香", Ke: "桂", Gi: "銀", Ki: "金", Ka: "角", Hi: "飛", Ou: "玉",
		To: "と", Ny: "成香", Nk: "成桂", Ng: "成銀", Um: "馬", Ry: "龍",
	}

	relativeNames = map[rune]string{
		RelativeLeft:     "左",
		RelativeStraight: "直",
		RelativeRight:    "右",
		RelativeUp:       "上",
		RelativeSideways: "寄",
		RelativeDown:     "引",
		RelativeDrop:     "打",
	}
)

// NotationText renders node in KIF style, such as "☗７六歩" or "☖同　角成".
// prev is the move played just before and decides when "同" is used. The
// root renders as an empty string.
func NotationText(node MoveNode, prev *MoveRecord) string {
	if node.Move == nil {
		if node.Special != "" {
			return SpecialText(node.Special)
		}
		return ""
	}
	m := node.Move

	var b strings.Builder
	if m.Color == White {
		b.WriteString("☖")
	} else {
		b.WriteString("☗")
	}
	name := pieceNames[m.Piece]
	if m.Same || (prev != nil && prev.To == m.To) {
		b.WriteString("同")
		if len([]rune(name)) == 1 {
			b.WriteString("　")
		}
	} else {
		b.WriteString(fileDigits[m.To.X])
		b.WriteString(rankKanji[m.To.Y])
	}
	b.WriteString(name)
	for _, r := range m.Relative {
		b.WriteString(relativeNames[r])
	}
	if m.Promote != nil {
		if *m.Promote {
			b.WriteString("成")
		} else {
			b.WriteString("不成")
		}
	}
	return b.String()
}

// SpecialText renders a terminal marker.
func SpecialText(s Special) string {
	if name, ok := specialNames[s]; ok {
		return name
	}
	return string(s)
}

// CSAText renders node in CSA style, such as "+7776FU" or "%TORYO".
func CSAText(node MoveNode) string {
	if node.Move == nil {
		if node.Special != "" {
			return "%" + string(node.Special)
		}
		return ""
	}
	m := node.Move
	sign := "+"
	if m.Color == White {
		sign = "-"
	}
	from := "00"
	if m.From != nil {
		from = fmt.Sprintf("%d%d", m.From.X, m.From.Y)
	}
	piece := m.Piece
	if m.Promotes() {
		piece = piece.Promoted()
	}
	return fmt.Sprintf("%s%s%d%d%s", sign, from, m.To.X, m.To.Y, piece)
}

// Package export renders game records for people and for other programs:
// KIF text (UTF-8 or Shift-JIS), CSA text and printable PDF.
package export

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"kifu_editor/internal/kifu"
)

var presetNames = map[string]string{
	"HIRATE": "平手",
	"KY":     "香落ち",
	"KY_R":   "右香落ち",
	"KA":     "角落ち",
	"HI":     "飛車落ち",
	"HIKY":   "飛香落ち",
	"2":      "二枚落ち",
	"3":      "三枚落ち",
	"4":      "四枚落ち",
	"5":      "五枚落ち",
	"5_L":    "左五枚落ち",
	"6":      "六枚落ち",
	"8":      "八枚落ち",
	"10":     "十枚落ち",
	"OTHER":  "その他",
}

// headerOrder puts the usual KIF header keys first. Other keys follow sorted.
var headerOrder = []string{"開始日時", "終了日時", "棋戦", "戦型", "持ち時間", "場所", "手合割", "先手", "後手"}

const kifMoveHeader = "手数----指手---------消費時間--"

// KIF renders tree as KIF text with every variation. Variations are listed
// after their parent line, the latest branch first.
func KIF(tree kifu.MoveTree) string {
	var b strings.Builder
	writeHeader(&b, tree)

	main := tree.MainLine()
	for _, c := range tree.Root().Comments {
		b.WriteString("*" + c + "\n")
	}
	b.WriteString(kifMoveHeader + "\n")
	writeLine(&b, tree, main[1:], 1, nil)
	writeVariations(&b, tree, main[1:], 1, nil)
	return b.String()
}

func writeHeader(b *strings.Builder, tree kifu.MoveTree) {
	header := tree.Header()
	if _, ok := header["手合割"]; !ok {
		preset := "HIRATE"
		if initial := tree.Initial(); initial != nil {
			preset = initial.Preset
		}
		if name, ok := presetNames[preset]; ok {
			header["手合割"] = name
		}
	}

	written := make(map[string]bool, len(header))
	for _, k := range headerOrder {
		if v, ok := header[k]; ok {
			fmt.Fprintf(b, "%s：%s\n", k, v)
			written[k] = true
		}
	}
	rest := make([]string, 0, len(header))
	for k := range header {
		if !written[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fmt.Fprintf(b, "%s：%s\n", k, header[k])
	}
}

// writeLine prints seq, whose first node is played at ply te. prev is the
// move played before it.
func writeLine(b *strings.Builder, tree kifu.MoveTree, seq kifu.MoveSequence, te int, prev *kifu.MoveRecord) {
	for i, id := range seq {
		n := tree.Node(id)
		mark := ""
		if len(n.Forks) > 0 {
			mark = "+"
		}
		fmt.Fprintf(b, "%4d %s%s\n", te+i, kifMoveText(n, prev), mark)
		for _, c := range n.Comments {
			b.WriteString("*" + c + "\n")
		}
		prev = n.Move
	}
}

// writeVariations prints the forks hanging off seq, deepest ply first. before
// is the move played before seq[0].
func writeVariations(b *strings.Builder, tree kifu.MoveTree, seq kifu.MoveSequence, te int, before *kifu.MoveRecord) {
	for i := len(seq) - 1; i >= 0; i-- {
		n := tree.Node(seq[i])
		prev := before
		if i > 0 {
			prev = tree.Node(seq[i-1]).Move
		}
		for _, fork := range n.Forks {
			fmt.Fprintf(b, "\n変化：%d手\n", te+i)
			writeLine(b, tree, fork, te+i, prev)
			writeVariations(b, tree, fork, te+i, prev)
		}
	}
}

// kifMoveText is the notation without the side marker, followed by the
// origin square for board moves. Drops always carry 打.
func kifMoveText(n kifu.MoveNode, prev *kifu.MoveRecord) string {
	text := kifu.NotationText(n, prev)
	if n.Move == nil {
		return text
	}
	text = strings.TrimPrefix(strings.TrimPrefix(text, "☗"), "☖")
	switch {
	case n.Move.From != nil:
		text += fmt.Sprintf("(%d%d)", n.Move.From.X, n.Move.From.Y)
	case !n.Move.ExplicitDrop():
		text += "打"
	}
	return text
}

// ShiftJIS converts KIF text to the Shift-JIS encoding older viewers expect.
func ShiftJIS(text string) ([]byte, error) {
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, japanese.ShiftJIS.NewEncoder())
	if _, err := io.WriteString(w, text); err != nil {
		return nil, fmt.Errorf("encode shift-jis: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode shift-jis: %w", err)
	}
	return buf.Bytes(), nil
}

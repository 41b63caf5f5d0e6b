package kifu

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

const sampleDocument = `{
  "header": {"先手": "Habu", "後手": "Sato"},
  "initial": {"preset": "HIRATE"},
  "moves": [
    {"comments": ["start"]},
    {"move": {"color": 0, "from": {"x": 7, "y": 7}, "to": {"x": 7, "y": 6}, "piece": "FU"}},
    {"move": {"color": 1, "from": {"x": 3, "y": 3}, "to": {"x": 3, "y": 4}, "piece": "FU"},
     "forks": [
       [{"move": {"color": 1, "from": {"x": 8, "y": 3}, "to": {"x": 8, "y": 4}, "piece": "FU"}}, {"special": "TORYO"}],
       [{"comments": ["dubious"], "move": {"color": 1, "from": {"x": 4, "y": 1}, "to": {"x": 3, "y": 2}, "piece": "KI"}}]
     ]},
    {"move": {"color": 0, "from": {"x": 8, "y": 8}, "to": {"x": 2, "y": 2}, "piece": "KA", "promote": true, "capture": "KA"}},
    {"move": {"color": 1, "from": {"x": 3, "y": 1}, "to": {"x": 2, "y": 2}, "piece": "GI", "same": true, "capture": "UM"}},
    {"move": {"color": 0, "to": {"x": 4, "y": 5}, "piece": "KA", "relative": "H"}},
    {"move": {"color": 1, "from": {"x": 2, "y": 2}, "to": {"x": 3, "y": 3}, "piece": "GI", "promote": false}}
  ]
}`

func TestImportExport_RoundTrip(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(sampleDocument), &doc); err != nil {
		t.Fatal(err)
	}
	tree, err := Import(doc)
	if err != nil {
		t.Fatal(err)
	}
	out := Export(tree)
	if !reflect.DeepEqual(out, doc) {
		t.Errorf("export differs from the imported document")
	}

	want, _ := json.Marshal(doc)
	got, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("json:\n got %s\nwant %s", got, want)
	}

	if got := csaStream(tree, mustCursor(t, 3, ForkPointer{Te: 2, ForkIndex: 0})); len(got) != 3 || got[2] != "%TORYO" {
		t.Errorf("fork stream = %v", got)
	}
}

func TestImportExport_AfterEdits(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(sampleDocument), &doc); err != nil {
		t.Fatal(err)
	}
	tree, err := Import(doc)
	if err != nil {
		t.Fatal(err)
	}
	swapped, _, err := SwapBranches(tree, Cursor{}, BranchPoint{Te: 2}, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	reimported, err := Import(Export(swapped))
	if err != nil {
		t.Fatal(err)
	}
	if !ContentEqual(reimported, swapped) {
		t.Errorf("edited tree does not survive a round trip")
	}
	if ContentEqual(reimported, tree) {
		t.Errorf("swap was lost in the round trip")
	}
}

func TestImport_Rejects(t *testing.T) {
	yes := true
	move := &MoveRecord{Color: Black, From: &Square{X: 7, Y: 7}, To: Square{X: 7, Y: 6}, Piece: Fu}
	cases := []struct {
		name string
		doc  Document
	}{
		{"no starting position", Document{Header: map[string]string{"先手": "A"}}},
		{"move at the root", Document{Moves: []DocumentMove{{Move: move}}}},
		{"forks at the root", Document{Moves: []DocumentMove{{Forks: [][]DocumentMove{{{Move: move}}}}}}},
		{"empty entry", Document{Moves: []DocumentMove{{}, {}}}},
		{"move and special", Document{Moves: []DocumentMove{{}, {Move: move, Special: SpecialToryo}}}},
		{"unknown special", Document{Moves: []DocumentMove{{}, {Special: "RESIGN"}}}},
		{"moves after special", Document{Moves: []DocumentMove{{}, {Special: SpecialToryo}, {Move: move}}}},
		{"empty fork", Document{Moves: []DocumentMove{{}, {Move: move, Forks: [][]DocumentMove{{}}}}}},
		{"fork on first fork move", Document{Moves: []DocumentMove{{}, {Move: move, Forks: [][]DocumentMove{
			{{Move: move, Forks: [][]DocumentMove{{{Move: move}}}}},
		}}}}},
		{"bad square", Document{Moves: []DocumentMove{{}, {Move: &MoveRecord{Color: Black, To: Square{X: 10, Y: 1}, Piece: Fu}}}}},
		{"promoting drop", Document{Moves: []DocumentMove{{}, {Move: &MoveRecord{Color: Black, To: Square{X: 5, Y: 5}, Piece: Ka, Promote: &yes}}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Import(tc.doc); !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("err = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

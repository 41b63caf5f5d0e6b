package kifu

import (
	"errors"
	"reflect"
	"slices"
	"testing"
)

func TestSwapBranches_ScenarioC(t *testing.T) {
	tree, _ := play(t, NewTree(nil, nil), Cursor{}, p76)
	tree, c := play(t, tree, Cursor{}, p26)

	swapped, sc, err := SwapBranches(tree, c, BranchPoint{Te: 1}, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := csaStream(swapped, Cursor{Tesuu: 1}); !slices.Equal(got, []string{"+2726FU"}) {
		t.Errorf("main line = %v", got)
	}
	if got := csaStream(swapped, mustCursor(t, 1, ForkPointer{Te: 1, ForkIndex: 0})); !slices.Equal(got, []string{"+7776FU"}) {
		t.Errorf("fork = %v", got)
	}
	// The cursor was on 2f, which is now the main line.
	if got := Encode(sc); got != "1,[]" {
		t.Errorf("cursor = %s, want 1,[]", got)
	}
}

func TestSwapBranches_Involution(t *testing.T) {
	tree := forkedTree(t)
	points := []struct {
		bp    BranchPoint
		pairs [][2]int
	}{
		{BranchPoint{Te: 2}, [][2]int{{0, 1}, {0, 2}, {1, 2}, {2, 1}}},
		{BranchPoint{Te: 3, Prefix: MustForkPath(ForkPointer{Te: 2, ForkIndex: 0})}, [][2]int{{0, 1}, {1, 0}}},
	}
	for _, p := range points {
		for _, pair := range p.pairs {
			once, _, err := SwapBranches(tree, Cursor{}, p.bp, pair[0], pair[1])
			if err != nil {
				t.Fatalf("swap %v at %d: %v", pair, p.bp.Te, err)
			}
			if ContentEqual(once, tree) {
				t.Errorf("swap %v at %d changed nothing", pair, p.bp.Te)
			}
			twice, _, err := SwapBranches(once, Cursor{}, p.bp, pair[0], pair[1])
			if err != nil {
				t.Fatalf("second swap %v at %d: %v", pair, p.bp.Te, err)
			}
			if !ContentEqual(twice, tree) {
				t.Errorf("swapping %v twice at %d is not the identity", pair, p.bp.Te)
			}
		}
	}
}

func TestSwapBranches_CursorFollowsContent(t *testing.T) {
	tree := forkedTree(t)
	bp := BranchPoint{Te: 2}
	cursors := []Cursor{
		mustCursor(t, 3),
		mustCursor(t, 3, ForkPointer{Te: 2, ForkIndex: 0}),
		mustCursor(t, 3, ForkPointer{Te: 2, ForkIndex: 0}, ForkPointer{Te: 3, ForkIndex: 0}),
		mustCursor(t, 2, ForkPointer{Te: 2, ForkIndex: 1}),
		mustCursor(t, 1, ForkPointer{Te: 2, ForkIndex: 1}),
	}
	for _, pair := range [][2]int{{0, 1}, {0, 2}, {1, 2}} {
		for _, c := range cursors {
			swapped, sc, err := SwapBranches(tree, c, bp, pair[0], pair[1])
			if err != nil {
				t.Fatal(err)
			}
			before := csaStream(tree, Cursor{Tesuu: 9, ForkPointers: c.ForkPointers})
			after := csaStream(swapped, Cursor{Tesuu: 9, ForkPointers: sc.ForkPointers})
			if !slices.Equal(before, after) {
				t.Errorf("swap %v, cursor %s -> %s: line %v became %v", pair, Encode(c), Encode(sc), before, after)
			}
			if sc.Tesuu != c.Tesuu {
				t.Errorf("swap %v moved cursor %s to ply %d", pair, Encode(c), sc.Tesuu)
			}
		}
	}
}

func TestSwapBranches_Errors(t *testing.T) {
	tree := forkedTree(t)
	before := Export(tree)
	cases := []struct {
		name string
		bp   BranchPoint
		a, b int
		want error
	}{
		{"same index", BranchPoint{Te: 2}, 1, 1, ErrInvalidBranchIndex},
		{"index past forks", BranchPoint{Te: 2}, 0, 3, ErrInvalidBranchIndex},
		{"negative index", BranchPoint{Te: 2}, -1, 0, ErrInvalidBranchIndex},
		{"ply zero", BranchPoint{Te: 0}, 0, 1, ErrInvalidBranchPoint},
		{"ply past the end", BranchPoint{Te: 4}, 0, 1, ErrInvalidBranchPoint},
		{"prefix fork missing", BranchPoint{Te: 3, Prefix: MustForkPath(ForkPointer{Te: 2, ForkIndex: 5})}, 0, 1, ErrInvalidBranchPoint},
		{"prefix at the branch ply", BranchPoint{Te: 2, Prefix: MustForkPath(ForkPointer{Te: 2, ForkIndex: 0})}, 0, 1, ErrInvalidBranchPoint},
		{"no forks at the node", BranchPoint{Te: 1}, 0, 1, ErrInvalidBranchIndex},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := SwapBranches(tree, Cursor{}, tc.bp, tc.a, tc.b)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if !reflect.DeepEqual(Export(tree), before) {
		t.Errorf("failed swaps modified the tree")
	}
}

func TestDeleteBranch_Main(t *testing.T) {
	tree := forkedTree(t)
	before := Export(tree)
	c := mustCursor(t, 2)

	got, gc, err := DeleteBranch(tree, c, BranchPoint{Te: 2}, 0)
	if !errors.Is(err, ErrCannotDeleteMain) {
		t.Fatalf("err = %v, want ErrCannotDeleteMain", err)
	}
	if !ContentEqual(got, tree) || Encode(gc) != Encode(c) {
		t.Errorf("failed delete returned a different tree or cursor")
	}
	if !reflect.DeepEqual(Export(tree), before) {
		t.Errorf("failed delete modified the tree")
	}
}

func TestDeleteBranch_RepairsCursor(t *testing.T) {
	tree := forkedTree(t)
	tree, _ = play(t, tree, mustCursor(t, 1), p94)
	bp := BranchPoint{Te: 2}

	cases := []struct {
		name   string
		target int
		cursor Cursor
		want   string
	}{
		{"later fork shifts down", 2, mustCursor(t, 2, ForkPointer{Te: 2, ForkIndex: 2}), "2,[2:1]"},
		{"earlier fork unchanged", 2, mustCursor(t, 3, ForkPointer{Te: 2, ForkIndex: 0}), "3,[2:0]"},
		{"inside deleted fork", 1, mustCursor(t, 3, ForkPointer{Te: 2, ForkIndex: 0}, ForkPointer{Te: 3, ForkIndex: 0}), "2,[]"},
		{"pending choice into deleted fork", 1, mustCursor(t, 1, ForkPointer{Te: 2, ForkIndex: 0}, ForkPointer{Te: 3, ForkIndex: 0}), "1,[]"},
		{"main line", 3, mustCursor(t, 3), "3,[]"},
		{"different line", 1, mustCursor(t, 2, ForkPointer{Te: 1, ForkIndex: 0}), "2,[1:0]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, c, err := DeleteBranch(tree, tc.cursor, bp, tc.target)
			if err != nil {
				t.Fatal(err)
			}
			if got := string(Encode(c)); got != tc.want {
				t.Errorf("cursor = %s, want %s", got, tc.want)
			}
			if n := len(next.Node(next.MainLine()[2]).Forks); n != 2 {
				t.Errorf("forks left = %d, want 2", n)
			}
			for _, p := range c.ForkPointers.Entries() {
				if p.Te == bp.Te && p.ForkIndex >= 2 {
					t.Errorf("cursor still points at fork %d", p.ForkIndex)
				}
			}
		})
	}
}

func TestDeleteBranch_ThenStreamsStayValid(t *testing.T) {
	tree := forkedTree(t)
	next, c, err := DeleteBranch(tree, mustCursor(t, 2, ForkPointer{Te: 2, ForkIndex: 1}), BranchPoint{Te: 2}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := csaStream(next, c); !slices.Equal(got, []string{"+7776FU", "-4344FU"}) {
		t.Errorf("stream after delete = %v", got)
	}
	if _, _, err := DeleteBranch(next, c, BranchPoint{Te: 2}, 2); !errors.Is(err, ErrInvalidBranchIndex) {
		t.Errorf("deleting a removed index: err = %v", err)
	}
}

func TestResolveBranchPoint(t *testing.T) {
	tree := forkedTree(t)
	info, err := ResolveBranchPoint(tree, BranchPoint{Te: 2})
	if err != nil {
		t.Fatal(err)
	}
	if info.Forks != 2 || CSAText(info.Main) != "-3334FU" {
		t.Errorf("info = %d forks, main %s", info.Forks, CSAText(info.Main))
	}
	info, err = ResolveBranchPoint(tree, BranchPoint{Te: 3, Prefix: MustForkPath(ForkPointer{Te: 2, ForkIndex: 0})})
	if err != nil {
		t.Fatal(err)
	}
	if info.Forks != 1 || CSAText(info.Main) != "+2726FU" {
		t.Errorf("nested info = %d forks, main %s", info.Forks, CSAText(info.Main))
	}
}

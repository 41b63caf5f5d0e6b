package kifu

import (
	"reflect"
	"slices"
	"testing"
)

func TestTreeWalker_Steps(t *testing.T) {
	w := NewTreeWalker(forkedTree(t))

	if w.Backward() {
		t.Errorf("Backward at the root succeeded")
	}
	if !w.Forward() || w.Tesuu() != 1 {
		t.Fatalf("Forward to ply 1 failed")
	}
	if w.ForkAndForward(2) {
		t.Errorf("ForkAndForward(2) succeeded with two forks")
	}
	if !w.ForkAndForward(0) || w.Tesuu() != 2 {
		t.Fatalf("ForkAndForward(0) failed")
	}
	if got := w.ForkPath().String(); got != "[2:0]" {
		t.Errorf("path = %s", got)
	}
	if !w.ForkAndForward(0) {
		t.Fatalf("ForkAndForward into the nested fork failed")
	}
	if got := CSAText(w.Current()); got != "+1716FU" {
		t.Errorf("current = %s", got)
	}
	if w.Forward() {
		t.Errorf("Forward past the end of a fork succeeded")
	}
	w.Backward()
	w.Backward()
	if w.Tesuu() != 1 || w.ForkPath().Len() != 0 {
		t.Errorf("after backing out: ply %d path %s", w.Tesuu(), w.ForkPath())
	}
	if !w.Forward() || CSAText(w.Current()) != "-3334FU" {
		t.Errorf("main continuation lost after leaving the fork")
	}
}

func TestTreeWalker_GotoDegrades(t *testing.T) {
	tree := forkedTree(t)
	cases := []struct {
		name   string
		cursor Cursor
		want   []string
	}{
		{"main line", mustCursor(t, 3), []string{"+7776FU", "-3334FU", "+2726FU"}},
		{"past the end", mustCursor(t, 9), []string{"+7776FU", "-3334FU", "+2726FU"}},
		{"second fork", mustCursor(t, 2, ForkPointer{Te: 2, ForkIndex: 1}), []string{"+7776FU", "-4344FU"}},
		{"past a short fork", mustCursor(t, 5, ForkPointer{Te: 2, ForkIndex: 1}), []string{"+7776FU", "-4344FU"}},
		{"missing fork falls back to main", mustCursor(t, 3, ForkPointer{Te: 2, ForkIndex: 7}), []string{"+7776FU", "-3334FU", "+2726FU"}},
		{"pointer at a ply without forks", mustCursor(t, 2, ForkPointer{Te: 1, ForkIndex: 0}), []string{"+7776FU", "-3334FU"}},
		{"nested fork", mustCursor(t, 3, ForkPointer{Te: 2, ForkIndex: 0}, ForkPointer{Te: 3, ForkIndex: 0}), []string{"+7776FU", "-8384FU", "+1716FU"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := csaStream(tree, tc.cursor); !slices.Equal(got, tc.want) {
				t.Errorf("stream = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMaterializeStream_Deterministic(t *testing.T) {
	tree := forkedTree(t)
	c := mustCursor(t, 3, ForkPointer{Te: 2, ForkIndex: 0})
	first := MaterializeStream(tree, c)
	second := MaterializeStream(tree, c)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("streams differ between calls")
	}
	if len(first) != 4 || !first[0].IsRoot() {
		t.Errorf("stream should start at the root and hold 4 nodes, got %d", len(first))
	}
}

func TestZeroTree(t *testing.T) {
	var tree MoveTree
	if got := MaterializeStream(tree, Cursor{Tesuu: 3}); len(got) != 1 {
		t.Errorf("zero tree stream has %d nodes", len(got))
	}
	res, err := AppendOrMergeMove(tree, Cursor{}, p76, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := csaStream(res.Tree, res.Cursor); !slices.Equal(got, []string{"+7776FU"}) {
		t.Errorf("stream = %v", got)
	}
}

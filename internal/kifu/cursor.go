package kifu

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ForkPointer selects fork ForkIndex at ply Te, where Te is the ply of the
// first move of the fork.
type ForkPointer struct {
	Te        int `json:"te"`
	ForkIndex int `json:"forkIndex"`
}

// ForkPath is an ordered set of fork pointers with strictly increasing Te.
// The zero value is the empty path. A ForkPath is never modified in place.
type ForkPath struct {
	entries []ForkPointer
}

// NewForkPath validates ptrs and returns them as a path.
func NewForkPath(ptrs ...ForkPointer) (ForkPath, error) {
	prev := 0
	for _, p := range ptrs {
		if p.Te < 1 || p.ForkIndex < 0 {
			return ForkPath{}, fmt.Errorf("%w: pointer %d:%d", ErrInvalidForkPath, p.Te, p.ForkIndex)
		}
		if p.Te <= prev {
			return ForkPath{}, fmt.Errorf("%w: ply %d after %d", ErrInvalidForkPath, p.Te, prev)
		}
		prev = p.Te
	}
	return ForkPath{entries: slices.Clone(ptrs)}, nil
}

// MustForkPath is like NewForkPath but panics on an invalid path.
func MustForkPath(ptrs ...ForkPointer) ForkPath {
	p, err := NewForkPath(ptrs...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p ForkPath) Len() int {
	return len(p.entries)
}

// Entries returns a copy of the pointers in ply order.
func (p ForkPath) Entries() []ForkPointer {
	return slices.Clone(p.entries)
}

// At returns the fork index recorded for ply te.
func (p ForkPath) At(te int) (int, bool) {
	i, ok := p.search(te)
	if !ok {
		return 0, false
	}
	return p.entries[i].ForkIndex, true
}

func (p ForkPath) search(te int) (int, bool) {
	return slices.BinarySearchFunc(p.entries, te, func(e ForkPointer, te int) int {
		return e.Te - te
	})
}

// UpTo keeps the pointers with Te <= te.
func (p ForkPath) UpTo(te int) ForkPath {
	i, ok := p.search(te)
	if ok {
		i++
	}
	return ForkPath{entries: slices.Clone(p.entries[:i])}
}

// After keeps the pointers with Te > te.
func (p ForkPath) After(te int) ForkPath {
	i, ok := p.search(te)
	if ok {
		i++
	}
	return ForkPath{entries: slices.Clone(p.entries[i:])}
}

// With returns a path where ply ptr.Te selects ptr.ForkIndex.
func (p ForkPath) With(ptr ForkPointer) ForkPath {
	i, ok := p.search(ptr.Te)
	entries := slices.Clone(p.entries)
	if ok {
		entries[i] = ptr
	} else {
		entries = slices.Insert(entries, i, ptr)
	}
	return ForkPath{entries: entries}
}

// Without returns a path with no pointer at ply te.
func (p ForkPath) Without(te int) ForkPath {
	i, ok := p.search(te)
	if !ok {
		return p
	}
	return ForkPath{entries: slices.Delete(slices.Clone(p.entries), i, i+1)}
}

// Merge returns p with every pointer of o added, o winning on the same ply.
func (p ForkPath) Merge(o ForkPath) ForkPath {
	out := p
	for _, e := range o.entries {
		out = out.With(e)
	}
	return out
}

func (p ForkPath) Equal(o ForkPath) bool {
	return slices.Equal(p.entries, o.entries)
}

// String formats the path as "[te:idx,te:idx]".
func (p ForkPath) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range p.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(e.Te))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(e.ForkIndex))
	}
	b.WriteByte(']')
	return b.String()
}

func (p ForkPath) MarshalJSON() ([]byte, error) {
	if p.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.entries)
}

func (p *ForkPath) UnmarshalJSON(data []byte) error {
	var ptrs []ForkPointer
	if err := json.Unmarshal(data, &ptrs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidForkPath, err)
	}
	path, err := NewForkPath(ptrs...)
	if err != nil {
		return err
	}
	*p = path
	return nil
}

// Cursor is a position in the tree: the ply and the fork choices that lead
// to it. Pointers past Tesuu are pending choices for moving forward.
type Cursor struct {
	Tesuu        int      `json:"tesuu"`
	ForkPointers ForkPath `json:"forkPointers"`
}

// NewCursor validates the ply and the fork pointers.
func NewCursor(tesuu int, ptrs ...ForkPointer) (Cursor, error) {
	if tesuu < 0 {
		return Cursor{}, fmt.Errorf("%w: negative ply %d", ErrInvalidCursor, tesuu)
	}
	path, err := NewForkPath(ptrs...)
	if err != nil {
		return Cursor{}, err
	}
	return Cursor{Tesuu: tesuu, ForkPointers: path}, nil
}

func (c *Cursor) UnmarshalJSON(data []byte) error {
	var raw struct {
		Tesuu        int      `json:"tesuu"`
		ForkPointers ForkPath `json:"forkPointers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Tesuu < 0 {
		return fmt.Errorf("%w: negative ply %d", ErrInvalidCursor, raw.Tesuu)
	}
	*c = Cursor{Tesuu: raw.Tesuu, ForkPointers: raw.ForkPointers}
	return nil
}

// TesuuPointer is the canonical string form of a cursor.
type TesuuPointer string

// Encode renders c as "tesuu,[te:idx,...]". Equal cursors give equal strings.
func Encode(c Cursor) TesuuPointer {
	return TesuuPointer(strconv.Itoa(c.Tesuu) + "," + c.ForkPointers.String())
}

// ParseTesuuPointer is the inverse of Encode.
func ParseTesuuPointer(s TesuuPointer) (Cursor, error) {
	head, rest, ok := strings.Cut(string(s), ",")
	if !ok || len(rest) < 2 || rest[0] != '[' || rest[len(rest)-1] != ']' {
		return Cursor{}, fmt.Errorf("%w: %q", ErrInvalidCursor, s)
	}
	tesuu, err := strconv.Atoi(head)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %q", ErrInvalidCursor, s)
	}
	var ptrs []ForkPointer
	if body := rest[1 : len(rest)-1]; body != "" {
		for _, item := range strings.Split(body, ",") {
			te, idx, ok := strings.Cut(item, ":")
			if !ok {
				return Cursor{}, fmt.Errorf("%w: %q", ErrInvalidForkPath, item)
			}
			p := ForkPointer{}
			if p.Te, err = strconv.Atoi(te); err != nil {
				return Cursor{}, fmt.Errorf("%w: %q", ErrInvalidForkPath, item)
			}
			if p.ForkIndex, err = strconv.Atoi(idx); err != nil {
				return Cursor{}, fmt.Errorf("%w: %q", ErrInvalidForkPath, item)
			}
			ptrs = append(ptrs, p)
		}
	}
	return NewCursor(tesuu, ptrs...)
}

// AppliedForkPointers returns the pointers of c that have been taken on the
// way to ply te.
func AppliedForkPointers(c Cursor, te int) ForkPath {
	return c.ForkPointers.UpTo(te)
}

// RetainFuturePointers keeps the pending choices of previous beyond te and
// adds newApplied on top of them.
func RetainFuturePointers(newApplied, previous ForkPath, te int) ForkPath {
	return previous.After(te).Merge(newApplied)
}

// Navigate moves the cursor to ply te along its own fork choices. Pending
// choices beyond the reached ply are kept so the cursor can move forward
// again along the same line.
func Navigate(tree MoveTree, c Cursor, te int) Cursor {
	w := NewTreeWalker(tree)
	w.Goto(te, c.ForkPointers)
	return Cursor{
		Tesuu:        w.Tesuu(),
		ForkPointers: RetainFuturePointers(w.ForkPath(), c.ForkPointers, w.Tesuu()),
	}
}

// Goto resolves c against tree and returns the cursor actually reached,
// holding only the pointers that were taken.
func Goto(tree MoveTree, c Cursor) Cursor {
	w := NewTreeWalker(tree)
	w.Goto(c.Tesuu, c.ForkPointers)
	return w.Cursor()
}

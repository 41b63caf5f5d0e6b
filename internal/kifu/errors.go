package kifu

import "errors"

var (
	ErrCannotDeleteMain   = errors.New("cannot delete the main continuation")
	ErrInvalidBranchPoint = errors.New("branch point does not resolve to a node")
	ErrInvalidBranchIndex = errors.New("branch index out of range")
	ErrInvalidForkPath    = errors.New("invalid fork path")
	ErrInvalidCursor      = errors.New("invalid cursor")
	ErrInvalidMove        = errors.New("invalid move record")
	ErrInvalidDocument    = errors.New("invalid kifu document")
	ErrHasVariations      = errors.New("continuation holds variations")
)

package pin

import "errors"

// Errors returned when resolving positions.
var (
	ErrUnknownNode      = errors.New("pin refers to an unknown node")
	ErrNotFocusable     = errors.New("node is not a focusable leaf")
	ErrOffsetOutOfRange = errors.New("pin offset out of range")
	ErrNoFocusableLeaf  = errors.New("no focusable leaf")
	ErrInvalidPoint     = errors.New("invalid point")
)

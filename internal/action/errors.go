package action

import "errors"

// Errors returned in failed results and by Decode.
var (
	ErrInvalidTarget = errors.New("invalid action target")
	ErrInvalidRange  = errors.New("invalid text range")
	ErrNotText       = errors.New("target is not a text node")
	ErrUnknownKind   = errors.New("unknown action kind")
	ErrInvalidAction = errors.New("invalid action")
)

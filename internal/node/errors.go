package node

import "errors"

// Errors returned by node and tree operations.
var (
	ErrNotFound          = errors.New("node not found")
	ErrDuplicateID       = errors.New("duplicate node id")
	ErrAttached          = errors.New("node is already attached")
	ErrDetached          = errors.New("node is not attached")
	ErrNotContainer      = errors.New("node cannot have children")
	ErrNotText           = errors.New("node is not a text node")
	ErrCycle             = errors.New("node cannot be inserted into its own subtree")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrRootImmutable     = errors.New("root cannot be removed or moved")
	ErrInvalidProps      = errors.New("invalid props")
	ErrInvalidDescriptor = errors.New("invalid node descriptor")
	ErrTypeMismatch      = errors.New("node type change not allowed")
)

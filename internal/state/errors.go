package state

import "errors"

// Errors returned by state and draft operations.
var (
	ErrDraftInProgress = errors.New("a draft is already open")
	ErrDraftClosed     = errors.New("draft is closed")
	ErrNodeNotFound    = errors.New("node not found")
	ErrNormalize       = errors.New("normalize failed")
)

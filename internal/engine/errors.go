package engine

import "errors"

// Errors returned by engine operations.
var (
	// ErrActionFailed indicates an action failed while abort_on_failure is set.
	ErrActionFailed = errors.New("action failed")

	// ErrTransactionClosed indicates Do was called after the transaction ended.
	ErrTransactionClosed = errors.New("transaction closed")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates the redo stack is empty.
	ErrNothingToRedo = errors.New("nothing to redo")
)

package lua

import "errors"

var (
	// ErrStateClosed is returned by a State after Close.
	ErrStateClosed = errors.New("script state closed")

	// ErrExecutionTimeout is returned when a script runs past its deadline.
	ErrExecutionTimeout = errors.New("script exceeded execution timeout")

	// ErrSchemaScript wraps every failure of a schema script.
	ErrSchemaScript = errors.New("schema script failed")
)

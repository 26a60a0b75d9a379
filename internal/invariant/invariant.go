// Package invariant reports violations of internal tree invariants.
//
// A violation means the document bookkeeping is corrupted, not that a caller
// asked for something absent. Violations panic with an *Error; the draft
// boundary recovers them, rolls back and returns the error.
package invariant

import (
	"errors"
	"fmt"
)

// ErrViolation is matched by every *Error via errors.Is.
var ErrViolation = errors.New("invariant violation")

// Error describes a broken invariant.
type Error struct {
	// Op is the operation that detected the violation (e.g. "idtree.IndexOf").
	Op string
	// Message describes what was inconsistent.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrViolation, e.Op, e.Message)
}

// Is lets errors.Is(err, ErrViolation) match.
func (e *Error) Is(target error) bool {
	return target == ErrViolation
}

// Panicf panics with an *Error.
func Panicf(op, format string, args ...any) {
	panic(&Error{Op: op, Message: fmt.Sprintf(format, args...)})
}

// Recover converts a recovered *Error panic into *err.
// Any other panic value is re-raised. Use as: defer invariant.Recover(&err).
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*Error); ok {
		*err = ie
		return
	}
	panic(r)
}

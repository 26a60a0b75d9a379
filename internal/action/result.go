package action

import "fmt"

type noopValue struct{}

// Result is the outcome of Execute. A failed result carries Err and
// means the draft was left unchanged by the action.
type Result struct {
	Value any
	Err   error
}

// OK returns a successful result.
func OK(v any) Result { return Result{Value: v} }

// Fail returns a failed result.
func Fail(err error) Result { return Result{Err: err} }

// Failf returns a failed result wrapping a formatted error.
func Failf(format string, args ...any) Result {
	return Result{Err: fmt.Errorf(format, args...)}
}

// Noop returns the success result of an action with no effect.
func Noop() Result { return Result{Value: noopValue{}} }

// Ok reports whether the action succeeded.
func (r Result) Ok() bool { return r.Err == nil }

// IsNoop reports whether the action succeeded without effect.
func (r Result) IsNoop() bool {
	_, ok := r.Value.(noopValue)
	return ok && r.Err == nil
}

package action

import (
	"fmt"

	"github.com/emrgen/carbon/internal/state"
)

// Batch runs actions in order as one unit. If one fails, those already
// applied are undone and the batch fails.
type Batch struct {
	meta
	Actions []Action

	done bool
}

// NewBatch returns a batch of actions.
func NewBatch(actions ...Action) *Batch {
	return &Batch{Actions: actions}
}

// Kind implements Action.
func (a *Batch) Kind() Kind { return KindBatch }

func (a *Batch) setOrigin(o state.Origin) {
	a.origin = o
	for _, c := range a.Actions {
		if c.Origin() == state.OriginUnknown {
			WithOrigin(c, o)
		}
	}
}

// Execute implements Action. The value is the list of child results.
func (a *Batch) Execute(d *state.Draft) Result {
	results := make([]Result, 0, len(a.Actions))
	for i, c := range a.Actions {
		r := c.Execute(d)
		if !r.Ok() {
			for j := i - 1; j >= 0; j-- {
				inv := a.Actions[j].Inverse()
				if inv == nil || results[j].IsNoop() {
					continue
				}
				if ur := inv.Execute(d); !ur.Ok() {
					return Failf("batch step %d: %w (undo of step %d failed: %v)", i, r.Err, j, ur.Err)
				}
			}
			return Fail(fmt.Errorf("batch step %d (%s): %w", i, c.Kind(), r.Err))
		}
		results = append(results, r)
	}
	a.done = true
	return OK(results)
}

// Inverse implements Action.
func (a *Batch) Inverse() Action {
	if !a.done {
		return nil
	}
	inv := make([]Action, 0, len(a.Actions))
	for i := len(a.Actions) - 1; i >= 0; i-- {
		if c := a.Actions[i].Inverse(); c != nil {
			inv = append(inv, c)
		}
	}
	return inherit(a, NewBatch(inv...))
}

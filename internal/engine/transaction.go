package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/emrgen/carbon/internal/action"
	"github.com/emrgen/carbon/internal/metrics"
	"github.com/emrgen/carbon/internal/state"
)

// Transaction is one draft's worth of actions.
type Transaction struct {
	// ID is unique per transaction and correlates its events.
	ID string
	// Seq numbers transactions in the order they ran, rolled back ones
	// included.
	Seq    uint64
	Origin state.Origin

	// Actions and Results are parallel: Results[i] came from Actions[i].
	Actions []action.Action
	Results []action.Result

	// Summary is set once the transaction committed.
	Summary  state.Summary
	Duration time.Duration

	engine *Engine
	draft  *state.Draft
	abort  bool
	failed int
}

// Do executes a inside the open transaction and records its result.
// Actions without an origin take the transaction's origin.
func (tx *Transaction) Do(a action.Action) action.Result {
	if tx.draft == nil || tx.draft.Closed() {
		return action.Fail(ErrTransactionClosed)
	}
	if a == nil {
		return action.Failf("%w: nil action", action.ErrInvalidAction)
	}
	if tx.abort && tx.failed > 0 {
		return action.Fail(fmt.Errorf("%w: skipped %s after earlier failure", ErrActionFailed, a.Kind()))
	}
	if a.Origin() == state.OriginUnknown {
		action.WithOrigin(a, tx.Origin)
	}

	r := a.Execute(tx.draft)
	tx.Actions = append(tx.Actions, a)
	tx.Results = append(tx.Results, r)

	result := metrics.ActionOK
	switch {
	case !r.Ok():
		result = metrics.ActionFailed
		tx.failed++
		tx.engine.logger.Debug("action failed",
			"tx", tx.ID, "kind", a.Kind(), "index", len(tx.Actions)-1, "error", r.Err)
	case r.IsNoop():
		result = metrics.ActionNoop
	}
	tx.engine.metrics.Action(string(a.Kind()), result)
	return r
}

// Failed returns the number of failed actions.
func (tx *Transaction) Failed() int { return tx.failed }

// Err returns the failures of the transaction joined, or nil.
func (tx *Transaction) Err() error {
	var errs []error
	for i, r := range tx.Results {
		if !r.Ok() {
			errs = append(errs, fmt.Errorf("action %d (%s): %w", i, tx.Actions[i].Kind(), r.Err))
		}
	}
	return errors.Join(errs...)
}

// Executed returns the actions that changed something, in order.
// These are the actions history records and inverts.
func (tx *Transaction) Executed() []action.Action {
	out := make([]action.Action, 0, len(tx.Actions))
	for _, a := range tx.Actions {
		if a.Inverse() != nil {
			out = append(out, a)
		}
	}
	return out
}

func (tx *Transaction) firstFailure() error {
	for i, r := range tx.Results {
		if !r.Ok() {
			return fmt.Errorf("%w: action %d (%s): %w", ErrActionFailed, i, tx.Actions[i].Kind(), r.Err)
		}
	}
	return nil
}

// describe names a transaction for history entries.
func describe(actions []action.Action) string {
	switch len(actions) {
	case 0:
		return ""
	case 1:
		return string(actions[0].Kind())
	default:
		return fmt.Sprintf("%s (+%d)", actions[0].Kind(), len(actions)-1)
	}
}

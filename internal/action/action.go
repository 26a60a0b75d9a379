// Package action implements the reversible mutation primitives applied
// inside a draft.
//
// Every action returns a Result instead of failing hard: a target that
// cannot be found is a recoverable failure and leaves the draft as it was.
// Once executed, an action records what it replaced so Inverse can build the
// action that undoes it. Actions marshal to JSON as {"kind": ..., ...} and
// Decode rebuilds them.
package action

import (
	"encoding/json"

	"github.com/emrgen/carbon/internal/state"
)

// Kind names an action variant.
type Kind string

const (
	KindInsert        Kind = "insert"
	KindRemove        Kind = "remove"
	KindMove          Kind = "move"
	KindSetContent    Kind = "set_content"
	KindUpdateProps   Kind = "update_props"
	KindChangeName    Kind = "change_name"
	KindInsertText    Kind = "insert_text"
	KindRemoveText    Kind = "remove_text"
	KindSelect        Kind = "select"
	KindSelectNodes   Kind = "select_nodes"
	KindActivateNodes Kind = "activate_nodes"
	KindBatch         Kind = "batch"
)

// Action is one reversible mutation.
type Action interface {
	json.Marshaler

	// Kind returns the variant name.
	Kind() Kind
	// Origin returns who issued the action.
	Origin() state.Origin
	// Execute applies the action to the draft.
	Execute(d *state.Draft) Result
	// Inverse returns the action undoing the last successful Execute,
	// or nil if the action has not run or had no effect.
	Inverse() Action
}

type originSetter interface {
	setOrigin(o state.Origin)
}

// WithOrigin tags a with origin o and returns it.
func WithOrigin(a Action, o state.Origin) Action {
	if s, ok := a.(originSetter); ok {
		s.setOrigin(o)
	}
	return a
}

type meta struct {
	origin state.Origin
}

// Origin returns who issued the action.
func (m *meta) Origin() state.Origin { return m.origin }

func (m *meta) setOrigin(o state.Origin) { m.origin = o }

func inherit[T originSetter](from Action, to T) T {
	to.setOrigin(from.Origin())
	return to
}

package action

import (
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/state"
)

// Select replaces the pin selection. The zero selection clears it.
type Select struct {
	meta
	Selection pin.PinnedSelection

	before *pin.PinnedSelection
}

// NewSelect returns an action selecting sel.
func NewSelect(sel pin.PinnedSelection) *Select {
	return &Select{Selection: sel}
}

// Kind implements Action.
func (a *Select) Kind() Kind { return KindSelect }

// Execute implements Action. The value is the normalized selection.
func (a *Select) Execute(d *state.Draft) Result {
	before, err := d.Select(a.Selection)
	if err != nil {
		return Failf("select: %w", err)
	}
	a.before = &before
	return OK(d.Selection())
}

// Inverse implements Action.
func (a *Select) Inverse() Action {
	if a.before == nil {
		return nil
	}
	return inherit(a, NewSelect(*a.before))
}

// SelectNodes replaces the selected node set.
type SelectNodes struct {
	meta
	IDs []id.ID

	before []id.ID
	done   bool
}

// NewSelectNodes returns an action selecting exactly ids.
func NewSelectNodes(ids ...id.ID) *SelectNodes {
	return &SelectNodes{IDs: ids}
}

// Kind implements Action.
func (a *SelectNodes) Kind() Kind { return KindSelectNodes }

// Execute implements Action. The value is the state.Diff of the sets.
func (a *SelectNodes) Execute(d *state.Draft) Result {
	before := d.SelectedNodes().Sorted()
	diff, err := d.SelectNodes(a.IDs)
	if err != nil {
		return Failf("select nodes: %w", err)
	}
	if diff.IsEmpty() {
		return Noop()
	}
	a.before, a.done = before, true
	return OK(diff)
}

// Inverse implements Action.
func (a *SelectNodes) Inverse() Action {
	if !a.done {
		return nil
	}
	return inherit(a, NewSelectNodes(a.before...))
}

// ActivateNodes replaces the activated node set.
type ActivateNodes struct {
	meta
	IDs []id.ID

	before []id.ID
	done   bool
}

// NewActivateNodes returns an action activating exactly ids.
func NewActivateNodes(ids ...id.ID) *ActivateNodes {
	return &ActivateNodes{IDs: ids}
}

// Kind implements Action.
func (a *ActivateNodes) Kind() Kind { return KindActivateNodes }

// Execute implements Action. The value is the state.Diff of the sets.
func (a *ActivateNodes) Execute(d *state.Draft) Result {
	before := d.ActivatedNodes().Sorted()
	diff, err := d.ActivateNodes(a.IDs)
	if err != nil {
		return Failf("activate nodes: %w", err)
	}
	if diff.IsEmpty() {
		return Noop()
	}
	a.before, a.done = before, true
	return OK(diff)
}

// Inverse implements Action.
func (a *ActivateNodes) Inverse() Action {
	if !a.done {
		return nil
	}
	return inherit(a, NewActivateNodes(a.before...))
}

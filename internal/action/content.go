package action

import (
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/state"
)

// SetContent replaces a node's content wholesale: the text of a text node,
// the children of any other node.
type SetContent struct {
	meta
	ID       id.ID
	Children []*node.Node
	Text     string

	oldChildren []*node.Node
	oldText     string
	wasText     bool
	done        bool
}

// NewSetContent returns an action replacing the children of nodeID.
func NewSetContent(nodeID id.ID, children ...*node.Node) *SetContent {
	return &SetContent{ID: nodeID, Children: children}
}

// NewSetText returns an action replacing the text of nodeID.
func NewSetText(nodeID id.ID, text string) *SetContent {
	return &SetContent{ID: nodeID, Text: text}
}

// Kind implements Action.
func (a *SetContent) Kind() Kind { return KindSetContent }

// Execute implements Action.
func (a *SetContent) Execute(d *state.Draft) Result {
	n, ok := d.Lookup(a.ID)
	if !ok {
		return Failf("set content: %w: %s", state.ErrNodeNotFound, a.ID)
	}
	if n.IsText() {
		if len(a.Children) > 0 {
			return Failf("set content: %w: text node %s cannot have children", ErrInvalidTarget, a.ID)
		}
		if n.Text() == a.Text {
			return Noop()
		}
		old, err := d.SetText(a.ID, a.Text)
		if err != nil {
			return Failf("set content: %w", err)
		}
		a.oldText, a.wasText, a.done = old, true, true
		return OK(a.ID)
	}
	if a.Text != "" {
		return Failf("set content: %w", ErrNotText)
	}
	old, err := d.ReplaceChildren(a.ID, a.Children)
	if err != nil {
		return Failf("set content: %w", err)
	}
	a.oldChildren, a.wasText, a.done = old, false, true
	return OK(a.ID)
}

// Inverse implements Action.
func (a *SetContent) Inverse() Action {
	if !a.done {
		return nil
	}
	if a.wasText {
		return inherit(a, NewSetText(a.ID, a.oldText))
	}
	return inherit(a, NewSetContent(a.ID, a.oldChildren...))
}

// UpdateProps merges a patch into a node's attributes. A null value in
// the patch deletes the key.
type UpdateProps struct {
	meta
	ID    id.ID
	Patch node.Props

	undo *node.Props
}

// NewUpdateProps returns an action merging patch into nodeID's props.
func NewUpdateProps(nodeID id.ID, patch node.Props) *UpdateProps {
	return &UpdateProps{ID: nodeID, Patch: patch}
}

// NewUpdateAttrs is NewUpdateProps.
func NewUpdateAttrs(nodeID id.ID, patch node.Props) *UpdateProps {
	return NewUpdateProps(nodeID, patch)
}

// Kind implements Action.
func (a *UpdateProps) Kind() Kind { return KindUpdateProps }

// Execute implements Action.
func (a *UpdateProps) Execute(d *state.Draft) Result {
	if a.Patch.IsEmpty() {
		return Noop()
	}
	undo, err := d.UpdateProps(a.ID, a.Patch)
	if err != nil {
		return Failf("update props: %w", err)
	}
	a.undo = &undo
	return OK(a.ID)
}

// Inverse implements Action.
func (a *UpdateProps) Inverse() Action {
	if a.undo == nil {
		return nil
	}
	return inherit(a, NewUpdateProps(a.ID, *a.undo))
}

// ChangeName changes a node's type.
type ChangeName struct {
	meta
	ID   id.ID
	Name string

	old string
}

// NewChangeName returns an action changing nodeID's type to name.
func NewChangeName(nodeID id.ID, name string) *ChangeName {
	return &ChangeName{ID: nodeID, Name: name}
}

// Kind implements Action.
func (a *ChangeName) Kind() Kind { return KindChangeName }

// Execute implements Action.
func (a *ChangeName) Execute(d *state.Draft) Result {
	n, ok := d.Lookup(a.ID)
	if !ok {
		return Failf("change name: %w: %s", state.ErrNodeNotFound, a.ID)
	}
	if n.Name() == a.Name {
		return Noop()
	}
	old, err := d.SetType(a.ID, a.Name)
	if err != nil {
		return Failf("change name: %w", err)
	}
	a.old = old
	return OK(a.ID)
}

// Inverse implements Action.
func (a *ChangeName) Inverse() Action {
	if a.old == "" {
		return nil
	}
	return inherit(a, NewChangeName(a.ID, a.old))
}

package action

import (
	"golang.org/x/text/unicode/norm"

	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/state"
)

// InsertText splices text at a leaf pin. Text joins a neighbouring run
// with the same props when one is available; otherwise a new run is
// created, splitting the leaf when the pin is inside it. Props nil means
// "same style as the leaf". Text is NFC-normalized unless Raw is set.
type InsertText struct {
	meta
	At    pin.Pin
	Text  string
	Props *node.Props
	Raw   bool

	inverse Action
}

// NewInsertText returns an action inserting text at at.
func NewInsertText(at pin.Pin, text string) *InsertText {
	return &InsertText{At: at, Text: text}
}

// NewStyledText returns an action inserting text with props at at.
func NewStyledText(at pin.Pin, text string, props node.Props) *InsertText {
	return &InsertText{At: at, Text: text, Props: &props}
}

// Kind implements Action.
func (a *InsertText) Kind() Kind { return KindInsertText }

// Execute implements Action. The value is the pin after the inserted text.
func (a *InsertText) Execute(d *state.Draft) Result {
	text := a.Text
	if !a.Raw {
		text = norm.NFC.String(text)
	}
	if text == "" {
		return Noop()
	}
	at, err := d.Resolver().Normalize(a.At)
	if err != nil {
		return Failf("insert text: %w", err)
	}
	leaf, _ := d.Lookup(at.ID)
	tree := d.Tree()

	style := node.EmptyProps()
	if leaf.IsText() {
		style = leaf.Props()
	}
	if a.Props != nil {
		style = *a.Props
	}
	if leaf.IsText() && style.Equal(leaf.Props()) {
		return a.splice(d, leaf, at.Offset, text)
	}

	atStart := at.Offset == 0
	atEnd := at.Offset == leaf.Size()
	if atStart {
		if prev, ok := tree.PrevSibling(leaf); ok && prev.IsText() && prev.Props().Equal(style) {
			return a.splice(d, prev, prev.Size(), text)
		}
	}
	if atEnd {
		if next, ok := tree.NextSibling(leaf); ok && next.IsText() && next.Props().Equal(style) {
			return a.splice(d, next, 0, text)
		}
	}

	typ := leaf.Type()
	if !leaf.IsText() {
		if typ, err = d.Schema().Type("text"); err != nil {
			return Failf("insert text: %w", err)
		}
	}
	run := node.NewText(d.Generator().Text(), typ, text, style)
	end := pin.At(run.ID(), node.TextLen(text))

	switch {
	case atEnd:
		err = d.InsertAfter(leaf.ID(), run)
	case atStart:
		err = d.InsertBefore(leaf.ID(), run)
	default:
		return a.split(d, leaf, at.Offset, run, end)
	}
	if err != nil {
		return Failf("insert text: %w", err)
	}
	a.inverse = inherit(a, NewRemove(run.ID()))
	return OK(end)
}

// splice inserts text into an existing run.
func (a *InsertText) splice(d *state.Draft, target *node.Node, offset int, text string) Result {
	orig := target.Text()
	updated, _ := node.SpliceText(orig, offset, 0, text)
	if _, err := d.SetText(target.ID(), updated); err != nil {
		return Failf("insert text: %w", err)
	}
	added := node.TextLen(updated) - node.TextLen(orig)
	// Text that fuses with a neighbouring grapheme cluster cannot be
	// removed by grapheme count; restore the original bytes instead.
	if restored, _ := node.SpliceText(updated, offset, added, ""); added > 0 && restored == orig {
		a.inverse = inherit(a, NewRemoveText(pin.At(target.ID(), offset), added))
	} else {
		a.inverse = inherit(a, NewSetText(target.ID(), orig))
	}
	return OK(pin.At(target.ID(), offset+added))
}

// split cuts leaf at offset and places run between the halves.
func (a *InsertText) split(d *state.Draft, leaf *node.Node, offset int, run *node.Node, end pin.Pin) Result {
	orig := leaf.Text()
	left, right := node.SplitText(orig, offset)
	rest := node.NewText(d.Generator().Text(), leaf.Type(), right, leaf.Props())
	if _, err := d.SetText(leaf.ID(), left); err != nil {
		return Failf("insert text: %w", err)
	}
	if err := d.InsertAfter(leaf.ID(), run, rest); err != nil {
		if _, rerr := d.SetText(leaf.ID(), orig); rerr != nil {
			return Failf("insert text: %w (restore failed: %v)", err, rerr)
		}
		return Failf("insert text: %w", err)
	}
	a.inverse = inherit(a, NewBatch(
		inherit(a, NewRemove(rest.ID())),
		inherit(a, NewRemove(run.ID())),
		inherit(a, NewSetText(leaf.ID(), orig)),
	))
	return OK(end)
}

// Inverse implements Action.
func (a *InsertText) Inverse() Action { return a.inverse }

// RemoveText deletes Length graphemes from a text leaf starting at a pin.
// Removing the whole text removes the leaf.
type RemoveText struct {
	meta
	At     pin.Pin
	Length int

	inverse Action
}

// NewRemoveText returns an action removing length graphemes at at.
func NewRemoveText(at pin.Pin, length int) *RemoveText {
	return &RemoveText{At: at, Length: length}
}

// Kind implements Action.
func (a *RemoveText) Kind() Kind { return KindRemoveText }

// Execute implements Action. The value is the removed text.
func (a *RemoveText) Execute(d *state.Draft) Result {
	if a.Length <= 0 {
		return Noop()
	}
	at, err := d.Resolver().RightAlign(a.At)
	if err != nil {
		return Failf("remove text: %w", err)
	}
	leaf, _ := d.Lookup(at.ID)
	if !leaf.IsText() {
		return Failf("remove text: %w: %s", ErrNotText, leaf)
	}
	if at.Offset+a.Length > leaf.Size() {
		return Failf("remove text: %w: %d+%d exceeds %d", ErrInvalidRange, at.Offset, a.Length, leaf.Size())
	}

	if at.Offset == 0 && a.Length == leaf.Size() {
		r, err := d.Remove(leaf.ID())
		if err != nil {
			return Failf("remove text: %w", err)
		}
		a.inverse = inherit(a, NewInsert(pin.WithinNode(r.Parent, r.Index), leaf))
		return OK(leaf.Text())
	}

	updated, removed := node.SpliceText(leaf.Text(), at.Offset, a.Length, "")
	if _, err := d.SetText(leaf.ID(), updated); err != nil {
		return Failf("remove text: %w", err)
	}
	props := leaf.Props()
	a.inverse = inherit(a, &InsertText{At: pin.At(leaf.ID(), at.Offset), Text: removed, Props: &props, Raw: true})
	return OK(removed)
}

// Inverse implements Action.
func (a *RemoveText) Inverse() Action { return a.inverse }

package history

import (
	"errors"
	"testing"

	"github.com/emrgen/carbon/internal/action"
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/schema"
	"github.com/emrgen/carbon/internal/state"
)

var testSchema = schema.Default()

// newDoc builds root[p1[t1 "hello"]].
func newDoc(t *testing.T) *state.State {
	t.Helper()
	p1 := node.New("p1", testSchema.MustType("paragraph")).Append(
		node.NewText("t1", testSchema.MustType("text"), "hello", node.Props{}),
	)
	tr, err := node.NewTree(node.New(id.Root, testSchema.MustType("document")).Append(p1))
	if err != nil {
		t.Fatal(err)
	}
	return state.New(tr, state.WithSchema(testSchema), state.WithGenerator(id.NewSequentialGenerator("")))
}

// runner applies actions in one draft and returns those with an effect.
func runner(s *state.State) Runner {
	return func(actions []action.Action) ([]action.Action, error) {
		var done []action.Action
		_, err := s.Produce(state.OriginProgrammatic, func(d *state.Draft) error {
			for _, a := range actions {
				r := a.Execute(d)
				if !r.Ok() {
					return r.Err
				}
				if !r.IsNoop() {
					done = append(done, a)
				}
			}
			return nil
		})
		return done, err
	}
}

// edit applies actions and pushes them as one entry.
func edit(t *testing.T, h *History, s *state.State, desc string, actions ...action.Action) {
	t.Helper()
	done, err := runner(s)(actions)
	if err != nil {
		t.Fatal(err)
	}
	h.Push(&Entry{Description: desc, Origin: state.OriginUser, Actions: done})
}

func text(t *testing.T, s *state.State) string {
	t.Helper()
	return s.Root().TextContent()
}

func TestUndoRedo(t *testing.T) {
	s := newDoc(t)
	h := New(10)
	run := runner(s)

	edit(t, h, s, "type", action.NewInsertText(pin.At("t1", 5), " world"))
	edit(t, h, s, "delete", action.NewRemoveText(pin.At("t1", 0), 6))
	if got := text(t, s); got != "world" {
		t.Fatalf("text = %q", got)
	}

	steps := []struct {
		op   func(Runner) error
		want string
	}{
		{h.Undo, "hello world"},
		{h.Undo, "hello"},
		{h.Redo, "hello world"},
		{h.Redo, "world"},
		{h.Undo, "hello world"},
	}
	for i, st := range steps {
		if err := st.op(run); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got := text(t, s); got != st.want {
			t.Errorf("step %d: text = %q, want %q", i, got, st.want)
		}
	}
	if h.UndoCount() != 1 || h.RedoCount() != 1 {
		t.Errorf("counts = %d/%d", h.UndoCount(), h.RedoCount())
	}

	edit(t, h, s, "type", action.NewInsertText(pin.At("t1", 0), ">"))
	if h.CanRedo() {
		t.Error("push did not clear redo")
	}
}

func TestEmptyStacks(t *testing.T) {
	h := New(0)
	if h.MaxEntries() != DefaultMaxEntries {
		t.Errorf("max = %d", h.MaxEntries())
	}
	run := func([]action.Action) ([]action.Action, error) { return nil, nil }
	if err := h.Undo(run); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("undo err = %v", err)
	}
	if err := h.Redo(run); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("redo err = %v", err)
	}
	h.Push(&Entry{Description: "empty"})
	if h.CanUndo() {
		t.Error("entry without actions was recorded")
	}
}

func TestUndoFailureKeepsEntry(t *testing.T) {
	s := newDoc(t)
	h := New(10)
	edit(t, h, s, "rename", action.NewChangeName("p1", "heading"))

	boom := errors.New("boom")
	err := h.Undo(func([]action.Action) ([]action.Action, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if h.UndoCount() != 1 || h.RedoCount() != 0 {
		t.Errorf("counts = %d/%d", h.UndoCount(), h.RedoCount())
	}
}

func TestMaxEntries(t *testing.T) {
	s := newDoc(t)
	h := New(2)
	for _, name := range []string{"heading", "paragraph", "section"} {
		edit(t, h, s, name, action.NewChangeName("p1", name))
	}
	info := h.UndoInfo()
	if len(info) != 2 || info[0].Description != "paragraph" || info[1].Description != "section" {
		t.Errorf("undo info = %+v", info)
	}

	h.SetMaxEntries(1)
	if peek, ok := h.PeekUndo(); !ok || peek.Description != "section" || peek.Actions != 1 {
		t.Errorf("peek = %+v, %v", peek, ok)
	}
	if h.UndoCount() != 1 {
		t.Errorf("undo count = %d", h.UndoCount())
	}
}

func TestGroup(t *testing.T) {
	s := newDoc(t)
	h := New(10)

	func() {
		defer h.GroupScope("burst").End()
		edit(t, h, s, "a", action.NewInsertText(pin.At("t1", 5), "a"))
		edit(t, h, s, "b", action.NewInsertText(pin.At("t1", 6), "b"))
		if !h.IsGrouping() {
			t.Error("not grouping inside scope")
		}
	}()
	if h.UndoCount() != 1 {
		t.Fatalf("undo count = %d", h.UndoCount())
	}
	if peek, _ := h.PeekUndo(); peek.Description != "burst" || peek.Actions != 2 {
		t.Errorf("peek = %+v", peek)
	}
	if err := h.Undo(runner(s)); err != nil {
		t.Fatal(err)
	}
	if got := text(t, s); got != "hello" {
		t.Errorf("text = %q", got)
	}

	h.BeginGroup("cancelled")
	edit(t, h, s, "c", action.NewInsertText(pin.At("t1", 5), "c"))
	h.CancelGroup()
	if h.UndoCount() != 0 {
		t.Errorf("cancelled group recorded: %d", h.UndoCount())
	}
}

func TestCheckpoint(t *testing.T) {
	s := newDoc(t)
	h := New(10)
	run := runner(s)

	edit(t, h, s, "one", action.NewInsertText(pin.At("t1", 5), "1"))
	cp := h.CreateCheckpoint()
	edit(t, h, s, "two", action.NewInsertText(pin.At("t1", 6), "2"))
	edit(t, h, s, "three", action.NewInsertText(pin.At("t1", 7), "3"))

	if err := h.UndoToCheckpoint(cp, run); err != nil {
		t.Fatal(err)
	}
	if got := text(t, s); got != "hello1" {
		t.Errorf("text = %q", got)
	}
	end := Checkpoint{undoDepth: 3}
	if err := h.RedoToCheckpoint(end, run); err != nil {
		t.Fatal(err)
	}
	if got := text(t, s); got != "hello123" {
		t.Errorf("text = %q", got)
	}
}

func TestInverses(t *testing.T) {
	s := newDoc(t)
	a := action.NewChangeName("p1", "heading")
	b := action.NewChangeName("p1", "heading")
	if _, err := runner(s)([]action.Action{a, b}); err != nil {
		t.Fatal(err)
	}
	inv := Inverses([]action.Action{a, b})
	if len(inv) != 1 || inv[0].Kind() != action.KindChangeName {
		t.Errorf("inverses = %v", inv)
	}
}

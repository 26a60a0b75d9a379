package history

import (
	"errors"
	"sync"
	"time"

	"github.com/emrgen/carbon/internal/action"
	"github.com/emrgen/carbon/internal/state"
)

// DefaultMaxEntries bounds the undo stack when no limit is given.
const DefaultMaxEntries = 1000

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Runner applies actions as one transaction and returns those that
// executed, whose inverses undo the run.
type Runner func(actions []action.Action) ([]action.Action, error)

// Entry is one undo unit.
type Entry struct {
	Description string
	Origin      state.Origin
	Actions     []action.Action
	Timestamp   time.Time
}

// Info describes an entry without exposing its actions.
type Info struct {
	Description string
	Origin      state.Origin
	Actions     int
	Timestamp   time.Time
}

func (e *Entry) info() Info {
	return Info{
		Description: e.Description,
		Origin:      e.Origin,
		Actions:     len(e.Actions),
		Timestamp:   e.Timestamp,
	}
}

// Inverses returns the actions undoing actions, last first. Actions
// without an inverse are skipped.
func Inverses(actions []action.Action) []action.Action {
	out := make([]action.Action, 0, len(actions))
	for i := len(actions) - 1; i >= 0; i-- {
		if inv := actions[i].Inverse(); inv != nil {
			out = append(out, inv)
		}
	}
	return out
}

// History manages the undo and redo stacks.
type History struct {
	mu sync.Mutex

	undoStack []*Entry
	redoStack []*Entry

	// Grouping state
	grouping  bool
	groupName string
	group     []*Entry

	maxEntries int
}

// New creates a history keeping at most maxEntries undo entries.
func New(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{maxEntries: maxEntries}
}

// Push records an entry and clears the redo stack. Entries without
// actions are ignored.
func (h *History) Push(e *Entry) {
	if e == nil || len(e.Actions) == 0 {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		h.group = append(h.group, e)
		return
	}
	h.pushLocked(e)
}

func (h *History) pushLocked(e *Entry) {
	h.undoStack = append(h.undoStack, e)
	h.redoStack = nil
	h.trimLocked()
}

func (h *History) trimLocked() {
	if excess := len(h.undoStack) - h.maxEntries; excess > 0 {
		h.undoStack = h.undoStack[excess:]
	}
}

// Undo reverts the most recent entry through run.
// The lock is released while run executes.
func (h *History) Undo(run Runner) error {
	h.mu.Lock()
	if len(h.undoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToUndo
	}
	e := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.mu.Unlock()

	done, err := run(Inverses(e.Actions))
	if err != nil {
		h.mu.Lock()
		h.undoStack = append(h.undoStack, e)
		h.mu.Unlock()
		return err
	}

	h.mu.Lock()
	h.redoStack = append(h.redoStack, &Entry{
		Description: e.Description,
		Origin:      e.Origin,
		Actions:     done,
		Timestamp:   time.Now(),
	})
	h.mu.Unlock()
	return nil
}

// Redo reapplies the most recently undone entry through run.
func (h *History) Redo(run Runner) error {
	h.mu.Lock()
	if len(h.redoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToRedo
	}
	e := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.mu.Unlock()

	done, err := run(Inverses(e.Actions))
	if err != nil {
		h.mu.Lock()
		h.redoStack = append(h.redoStack, e)
		h.mu.Unlock()
		return err
	}

	h.mu.Lock()
	h.undoStack = append(h.undoStack, &Entry{
		Description: e.Description,
		Origin:      e.Origin,
		Actions:     done,
		Timestamp:   time.Now(),
	})
	h.trimLocked()
	h.mu.Unlock()
	return nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo entries.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo entries.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.group = nil
}

// UndoInfo describes the undo stack, oldest first.
func (h *History) UndoInfo() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.undoStack)
}

// RedoInfo describes the redo stack, oldest first.
func (h *History) RedoInfo() []Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.redoStack)
}

func infos(stack []*Entry) []Info {
	out := make([]Info, len(stack))
	for i, e := range stack {
		out[i] = e.info()
	}
	return out
}

// PeekUndo describes the next undo entry without removing it.
func (h *History) PeekUndo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undoStack) == 0 {
		return Info{}, false
	}
	return h.undoStack[len(h.undoStack)-1].info(), true
}

// PeekRedo describes the next redo entry without removing it.
func (h *History) PeekRedo() (Info, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redoStack) == 0 {
		return Info{}, false
	}
	return h.redoStack[len(h.redoStack)-1].info(), true
}

// SetMaxEntries changes the undo limit, dropping the oldest entries if
// the stack is already larger.
func (h *History) SetMaxEntries(max int) {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxEntries = max
	h.trimLocked()
}

// MaxEntries returns the undo limit.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}

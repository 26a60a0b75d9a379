package history

import "time"

// BeginGroup starts collecting entries into one undo unit. Nested calls
// are ignored.
func (h *History) BeginGroup(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grouping {
		return
	}
	h.grouping = true
	h.groupName = name
	h.group = nil
}

// EndGroup pushes the collected entries as a single entry.
func (h *History) EndGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.grouping {
		return
	}
	h.grouping = false
	if len(h.group) == 0 {
		return
	}

	merged := &Entry{
		Description: h.groupName,
		Origin:      h.group[0].Origin,
		Timestamp:   time.Now(),
	}
	for _, e := range h.group {
		merged.Actions = append(merged.Actions, e.Actions...)
	}
	h.group = nil
	h.pushLocked(merged)
}

// CancelGroup stops grouping and drops the collected entries.
// The transactions they describe stay applied.
func (h *History) CancelGroup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.grouping = false
	h.group = nil
}

// IsGrouping returns true if a group is open.
func (h *History) IsGrouping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grouping
}

// GroupScope groups entries until End, for use with defer:
//
//	defer h.GroupScope("paste").End()
type GroupScope struct {
	history *History
	active  bool
}

// GroupScope starts a new group scope.
func (h *History) GroupScope(name string) *GroupScope {
	h.BeginGroup(name)
	return &GroupScope{history: h, active: true}
}

// End closes the group. Only the first call has effect.
func (g *GroupScope) End() {
	if g.active {
		g.history.EndGroup()
		g.active = false
	}
}

// Cancel cancels the group without pushing an entry.
func (g *GroupScope) Cancel() {
	if g.active {
		g.history.CancelGroup()
		g.active = false
	}
}

// Checkpoint is a position in the undo stack.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint records the current undo depth.
func (h *History) CreateCheckpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Checkpoint{undoDepth: len(h.undoStack)}
}

// UndoToCheckpoint undoes every entry pushed since cp.
func (h *History) UndoToCheckpoint(cp Checkpoint, run Runner) error {
	for h.UndoCount() > cp.undoDepth {
		if err := h.Undo(run); err != nil {
			return err
		}
	}
	return nil
}

// RedoToCheckpoint redoes entries until the undo depth reaches cp again.
func (h *History) RedoToCheckpoint(cp Checkpoint, run Runner) error {
	for h.UndoCount() < cp.undoDepth && h.CanRedo() {
		if err := h.Redo(run); err != nil {
			return err
		}
	}
	return nil
}

// Package history provides undo/redo for committed transactions.
//
// An Entry holds the actions a transaction executed. Undoing an entry runs
// the inverses of those actions in reverse order; the actions that ran
// become the redo entry, and redoing inverts them again. History never
// touches the document itself: callers pass a Runner that applies actions
// and reports what actually executed.
//
//	h := history.New(1000)
//	h.Push(&history.Entry{Description: "type", Actions: executed})
//
//	// Undo/redo
//	h.Undo(run)
//	h.Redo(run)
//
// # Grouping
//
// Entries pushed between BeginGroup and EndGroup undo together:
//
//	h.BeginGroup("paste")
//	// ... several transactions ...
//	h.EndGroup()
package history

// Package engine is the transactional facade over a carbon document.
//
// An Engine owns one state.State and is its single writer. Every change
// runs as a Transaction: a draft is opened, actions execute against it in
// order, and the draft commits or rolls back as a whole.
//
// # Transactions
//
// Apply executes a fixed list of actions:
//
//	tx, err := eng.Apply(state.OriginUser,
//		action.NewInsertText(pin.At("t1", 5), " there"),
//		action.NewSelect(pin.Collapsed(pin.At("t1", 11))),
//	)
//
// Transact hands the caller the open transaction so that later actions can
// depend on earlier results:
//
//	tx, err := eng.Transact(state.OriginUser, func(tx *engine.Transaction) error {
//		r := tx.Do(action.NewInsertText(at, "x"))
//		if !r.Ok() {
//			return r.Err
//		}
//		tx.Do(action.NewSelect(pin.Collapsed(r.Value.(pin.Pin))))
//		return nil
//	})
//
// A failed action leaves the draft as it was before that action. By default
// the transaction still commits the remaining work and the failures are
// reported in Transaction.Results. With transaction.abort_on_failure set
// the first failure rolls the whole transaction back and ErrActionFailed is
// returned.
//
// # Undo and Redo
//
// Committed user and programmatic transactions that changed content are
// pushed onto the history. Undo and Redo run the inverse actions as new
// transactions, which are not themselves recorded. Remote transactions are
// never recorded.
//
// # Notifications
//
// After a commit the engine publishes the events built by events.ForCommit
// on its bus, records metrics and prunes view handles of removed nodes.
// Events are published after the engine lock is released, so handlers may
// read from or write to the engine.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are serialized; reads
// through View share a read lock.
package engine

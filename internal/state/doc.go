// Package state holds the document snapshot and the drafts that change it.
//
// A State is read-only outside a draft. State.Draft opens the single
// allowed draft; its primitives mutate the live tree while journaling
// every change, so Rollback restores the tree, sibling positions and the
// selection exactly. Removed nodes stay quarantined until Commit.
//
// Produce wraps the cycle:
//
//	sum, err := st.Produce(state.OriginUser, func(d *state.Draft) error {
//	    return d.InsertAfter("p1", para)
//	})
//
// An invariant violation panics inside the tree bookkeeping; Produce
// recovers it, rolls back and returns it as an error.
package state

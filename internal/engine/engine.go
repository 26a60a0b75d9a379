package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emrgen/carbon/internal/action"
	"github.com/emrgen/carbon/internal/config"
	"github.com/emrgen/carbon/internal/event"
	"github.com/emrgen/carbon/internal/event/events"
	"github.com/emrgen/carbon/internal/history"
	"github.com/emrgen/carbon/internal/invariant"
	"github.com/emrgen/carbon/internal/metrics"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/state"
	"github.com/emrgen/carbon/internal/view"
)

// Engine is the single writer of a document state.
//
// It combines the state, undo history, event bus, view registrations and
// metrics into a thread-safe API.
type Engine struct {
	mu sync.RWMutex

	// Core components
	state   *state.State
	history *history.History
	bus     *event.Bus
	views   *view.Store
	metrics *metrics.Collector
	logger  *slog.Logger

	// Configuration
	cfg config.Config
}

// New creates an Engine owning st.
func New(st *state.State, opts ...Option) *Engine {
	e := &Engine{
		state:  st,
		cfg:    config.Default(),
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.bus == nil {
		e.bus = event.NewBus(event.WithErrorHandler(func(ev any, err error) {
			e.logger.Warn("event handler failed", "error", err)
		}))
	}
	if e.views == nil {
		e.views = view.NewStore()
	}
	e.history = history.New(e.cfg.History.MaxEntries)
	e.state.SetCompactThreshold(e.cfg.Tree.CompactThreshold)

	return e
}

// ============================================================================
// Transactions
// ============================================================================

// Apply executes actions in one transaction.
func (e *Engine) Apply(origin state.Origin, actions ...action.Action) (*Transaction, error) {
	return e.Transact(origin, func(tx *Transaction) error {
		for _, a := range actions {
			tx.Do(a)
		}
		return nil
	})
}

// Transact runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error, when an invariant is
// violated, or when an action fails while abort_on_failure is set.
//
// The returned Transaction is non-nil whenever a draft was opened, so its
// Results can be inspected after a rollback.
func (e *Engine) Transact(origin state.Origin, fn func(tx *Transaction) error) (*Transaction, error) {
	e.mu.Lock()
	tx, evs, err := e.runLocked(origin, fn, true)
	e.mu.Unlock()

	e.publish(evs)
	return tx, err
}

// runLocked executes one transaction. It returns the events to publish once
// the lock is released.
func (e *Engine) runLocked(origin state.Origin, fn func(tx *Transaction) error, record bool) (*Transaction, []any, error) {
	tx := &Transaction{
		ID:     uuid.NewString(),
		Seq:    e.state.Generator().Sequence(),
		Origin: origin,
		engine: e,
		abort:  e.cfg.Transaction.AbortOnFailure,
	}

	start := time.Now()
	sum, err := e.state.Produce(origin, func(d *state.Draft) error {
		tx.draft = d
		if err := fn(tx); err != nil {
			return err
		}
		if tx.abort {
			return tx.firstFailure()
		}
		return nil
	})
	tx.draft = nil
	tx.Duration = time.Since(start)

	if err != nil {
		e.rolledBack(tx, err)
		return tx, []any{events.ForRollback(tx.ID, origin, err)}, err
	}
	tx.Summary = sum

	if record && recordable(origin) && sum.ContentChanged {
		if executed := tx.Executed(); len(executed) > 0 {
			e.history.Push(&history.Entry{
				Description: describe(executed),
				Origin:      origin,
				Actions:     executed,
			})
		}
	}

	result := metrics.ResultCommitted
	if !sum.ContentChanged && !sum.SelectionChanged && sum.Nodes.IsEmpty() {
		result = metrics.ResultNoop
	}
	e.metrics.Transaction(origin.String(), result, tx.Duration)
	e.metrics.Commit(sum.Version, e.state.Tree().Len(), len(sum.Compacted))

	if pruned := e.views.Prune(sum.Changes.Removed); pruned > 0 {
		e.logger.Debug("view handles pruned", "tx", tx.ID, "count", pruned)
	}

	e.logger.Debug("transaction committed",
		"tx", tx.ID,
		"seq", tx.Seq,
		"origin", origin,
		"actions", len(tx.Actions),
		"failed", tx.failed,
		"version", sum.Version,
		"duration", tx.Duration,
	)

	evs := events.ForCommit(tx.ID, sum, events.TransactionCommitted{
		Actions:  len(tx.Actions),
		Failed:   tx.failed,
		Duration: tx.Duration,
	})
	return tx, evs, nil
}

func (e *Engine) rolledBack(tx *Transaction, err error) {
	e.metrics.Transaction(tx.Origin.String(), metrics.ResultRolledBack, tx.Duration)
	attrs := []any{"tx", tx.ID, "seq", tx.Seq, "origin", tx.Origin, "actions", len(tx.Actions), "error", err}
	if errors.Is(err, invariant.ErrViolation) {
		e.logger.Error("invariant violated, transaction rolled back", attrs...)
		return
	}
	e.logger.Warn("transaction rolled back", attrs...)
}

func recordable(origin state.Origin) bool {
	return origin == state.OriginUser || origin == state.OriginProgrammatic
}

func (e *Engine) publish(evs []any) {
	ctx := context.Background()
	for _, ev := range evs {
		if err := e.bus.Publish(ctx, ev); err != nil {
			e.logger.Warn("publish failed", "error", err)
		}
	}
}

// ============================================================================
// Undo/Redo
// ============================================================================

// Undo reverts the most recent recorded transaction.
func (e *Engine) Undo() (*Transaction, error) {
	return e.step(e.history.Undo, ErrNothingToUndo)
}

// Redo reapplies the most recently undone transaction.
func (e *Engine) Redo() (*Transaction, error) {
	return e.step(e.history.Redo, ErrNothingToRedo)
}

func (e *Engine) step(move func(history.Runner) error, empty error) (*Transaction, error) {
	e.mu.Lock()
	var (
		tx  *Transaction
		evs []any
	)
	err := move(func(actions []action.Action) ([]action.Action, error) {
		var err error
		tx, evs, err = e.runLocked(originOf(actions), func(tx *Transaction) error {
			for _, a := range actions {
				if r := tx.Do(a); !r.Ok() {
					return r.Err
				}
			}
			return nil
		}, false)
		if err != nil {
			return nil, err
		}
		return tx.Executed(), nil
	})
	e.mu.Unlock()

	e.publish(evs)
	switch {
	case errors.Is(err, history.ErrNothingToUndo), errors.Is(err, history.ErrNothingToRedo):
		return nil, empty
	case err != nil:
		return tx, fmt.Errorf("replay history: %w", err)
	}
	return tx, nil
}

// originOf returns the origin shared by inverse actions, which inherit it
// from the actions they undo.
func originOf(actions []action.Action) state.Origin {
	for _, a := range actions {
		if o := a.Origin(); o != state.OriginUnknown {
			return o
		}
	}
	return state.OriginProgrammatic
}

// CanUndo returns true if there are operations to undo.
func (e *Engine) CanUndo() bool {
	return e.history.CanUndo()
}

// CanRedo returns true if there are operations to redo.
func (e *Engine) CanRedo() bool {
	return e.history.CanRedo()
}

// UndoCount returns the number of undoable transactions.
func (e *Engine) UndoCount() int {
	return e.history.UndoCount()
}

// RedoCount returns the number of redoable transactions.
func (e *Engine) RedoCount() int {
	return e.history.RedoCount()
}

// BeginUndoGroup starts grouping transactions into a single undo entry.
func (e *Engine) BeginUndoGroup(name string) {
	e.history.BeginGroup(name)
}

// EndUndoGroup ends the current undo group.
func (e *Engine) EndUndoGroup() {
	e.history.EndGroup()
}

// CancelUndoGroup discards the current group without recording it.
// Changes already applied stay applied.
func (e *Engine) CancelUndoGroup() {
	e.history.CancelGroup()
}

// ClearHistory clears all undo/redo history.
func (e *Engine) ClearHistory() {
	e.history.Clear()
}

// History returns the undo history.
func (e *Engine) History() *history.History {
	return e.history
}

// ============================================================================
// Reads
// ============================================================================

// View runs fn with read access to the state. fn must not retain the state
// or call write methods of the engine.
func (e *Engine) View(fn func(s *state.State)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.state)
}

// Version returns the version of the last commit.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Version()
}

// Selection returns the current pin selection.
func (e *Engine) Selection() pin.PinnedSelection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Selection()
}

// Descriptor returns a detached copy of the document.
func (e *Engine) Descriptor() *node.Descriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return node.ToDescriptor(e.state.Root())
}

// ============================================================================
// Collaborators
// ============================================================================

// Bus returns the event bus the engine publishes on.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// RegisterView associates a rendering handle with n. The handle is
// dropped when n is removed by a committed transaction.
func (e *Engine) RegisterView(n *node.Node, handle any) {
	e.views.Register(n, handle)
}

// ViewOf returns the handle registered for a node.
func (e *Engine) ViewOf(n *node.Node) (any, bool) {
	return e.views.Get(n.ID())
}

// ============================================================================
// Configuration
// ============================================================================

// Config returns the active configuration.
func (e *Engine) Config() config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// ApplyConfig switches the history bound, compaction threshold and failure
// policy at runtime.
func (e *Engine) ApplyConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg = cfg
	e.history.SetMaxEntries(cfg.History.MaxEntries)
	e.state.SetCompactThreshold(cfg.Tree.CompactThreshold)
	e.logger.Info("configuration applied",
		"history.max_entries", cfg.History.MaxEntries,
		"tree.compact_threshold", cfg.Tree.CompactThreshold,
		"transaction.abort_on_failure", cfg.Transaction.AbortOnFailure,
	)
	return nil
}

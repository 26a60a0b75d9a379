// Package events defines the topics and payloads published for commits.
package events

import (
	"time"

	"github.com/emrgen/carbon/internal/event"
	"github.com/emrgen/carbon/internal/event/topic"
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/state"
)

// Source is the metadata source of every document event.
const Source = "engine"

// Document topics.
const (
	TopicContentChanged   topic.Topic = "state.content.changed"
	TopicSelectionChanged topic.Topic = "state.selection.changed"

	TopicNodeSelected    topic.Topic = "node.selected"
	TopicNodeDeselected  topic.Topic = "node.deselected"
	TopicNodeActivated   topic.Topic = "node.activated"
	TopicNodeDeactivated topic.Topic = "node.deactivated"

	TopicTransactionCommitted  topic.Topic = "transaction.committed"
	TopicTransactionRolledBack topic.Topic = "transaction.rolledback"
)

// ContentChanged is published when a commit touched the tree.
type ContentChanged struct {
	Transaction string
	Version     uint64
	Origin      state.Origin
	Changes     state.ChangeSet
}

// SelectionChanged is published when a commit moved the pin selection.
type SelectionChanged struct {
	Transaction string
	Version     uint64
	Origin      state.Origin
	Before      pin.PinnedSelection
	After       pin.PinnedSelection
}

// NodeStateChanged is published once per node whose selected or active
// flag flipped.
type NodeStateChanged struct {
	Transaction string
	Version     uint64
	Origin      state.Origin
	Node        id.ID
}

// TransactionCommitted is published after every commit.
type TransactionCommitted struct {
	Transaction string
	Version     uint64
	Origin      state.Origin
	Actions     int
	Failed      int
	Duration    time.Duration
}

// TransactionRolledBack is published when a transaction was discarded.
type TransactionRolledBack struct {
	Transaction string
	Origin      state.Origin
	Err         string
}

// ForCommit builds the events describing sum, in publication order:
// content, selection, node flags, then the commit itself.
func ForCommit(tx string, sum state.Summary, committed TransactionCommitted) []any {
	var out []any
	add := func(e any) { out = append(out, e) }

	if sum.ContentChanged {
		add(event.NewEvent(TopicContentChanged, ContentChanged{
			Transaction: tx, Version: sum.Version, Origin: sum.Origin, Changes: sum.Changes,
		}, Source).WithCorrelation(tx))
	}
	if sum.SelectionChanged {
		add(event.NewEvent(TopicSelectionChanged, SelectionChanged{
			Transaction: tx, Version: sum.Version, Origin: sum.Origin,
			Before: sum.Selection.Before, After: sum.Selection.After,
		}, Source).WithCorrelation(tx))
	}
	nodes := func(t topic.Topic, ids []id.ID) {
		for _, n := range ids {
			add(event.NewEvent(t, NodeStateChanged{
				Transaction: tx, Version: sum.Version, Origin: sum.Origin, Node: n,
			}, Source).WithCorrelation(tx))
		}
	}
	nodes(TopicNodeDeselected, sum.Nodes.Deselected)
	nodes(TopicNodeSelected, sum.Nodes.Selected)
	nodes(TopicNodeDeactivated, sum.Nodes.Deactivated)
	nodes(TopicNodeActivated, sum.Nodes.Activated)

	committed.Transaction, committed.Version, committed.Origin = tx, sum.Version, sum.Origin
	add(event.NewEvent(TopicTransactionCommitted, committed, Source).WithCorrelation(tx))
	return out
}

// ForRollback builds the rollback event.
func ForRollback(tx string, origin state.Origin, err error) any {
	p := TransactionRolledBack{Transaction: tx, Origin: origin}
	if err != nil {
		p.Err = err.Error()
	}
	return event.NewEvent(TopicTransactionRolledBack, p, Source).WithCorrelation(tx)
}

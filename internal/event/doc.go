// Package event is the change-notification bus of the document core.
//
// Committed transactions publish typed events on hierarchical topics.
// Subscribers register a handler for a topic pattern and are called
// synchronously, in priority order, in the publisher's goroutine. A
// handler that panics or fails is isolated: the remaining handlers still
// run and the failure is counted in Stats.
//
// # Topics
//
//	state.content.changed     - a commit changed the tree
//	state.selection.changed   - a commit moved the pin selection
//	node.selected             - a node joined the selected set
//	transaction.committed     - a transaction committed
//
// Subscriptions support wildcards:
//
//	node.*    - matches node.selected, node.activated (single segment)
//	state.**  - matches every state event (any depth)
//
// # Usage
//
//	bus := event.NewBus()
//	sub, _ := bus.Subscribe("node.*", event.HandlerFunc(func(ctx context.Context, e any) error {
//	    ...
//	}))
//	defer bus.Unsubscribe(sub)
//
//	bus.Publish(ctx, event.NewEvent(events.TopicNodeSelected, payload, "engine"))
package event

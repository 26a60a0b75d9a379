package event

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/emrgen/carbon/internal/event/topic"
)

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithErrorHandler sets the observer of handler failures.
func WithErrorHandler(h ErrorHandler) BusOption {
	return func(b *Bus) {
		b.onError = h
	}
}

// Bus delivers events synchronously to matching subscriptions.
// It is safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription
	seq  uint64

	onError ErrorHandler

	eventsPublished atomic.Uint64
	eventsDelivered atomic.Uint64
	handlerErrors   atomic.Uint64
	handlerPanics   atomic.Uint64
}

// NewBus creates a new event bus with the given options.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for every topic matching pattern.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub := newSubscription(uuid.NewString(), pattern, handler, b.seq, opts...)
	idx, _ := slices.BinarySearchFunc(b.subs, sub, func(a, s *Subscription) int {
		if a.config.Priority != s.config.Priority {
			return int(a.config.Priority - s.config.Priority)
		}
		return int(a.seq) - int(s.seq)
	})
	b.subs = slices.Insert(b.subs, idx, sub)
	return sub, nil
}

// SubscribeFunc is Subscribe with a function handler.
func (b *Bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscription, error) {
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe cancels and removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrInvalidSubscription
	}
	sub.Cancel()
	if !b.remove(sub) {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (b *Bus) remove(sub *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := slices.Index(b.subs, sub)
	if idx < 0 {
		return false
	}
	b.subs = slices.Delete(b.subs, idx, idx+1)
	return true
}

// Publish delivers event to every active matching subscription in
// priority order. Handler failures do not stop delivery and are not
// returned; they are counted and passed to the error handler.
func (b *Bus) Publish(ctx context.Context, event any) error {
	tp, ok := event.(TopicProvider)
	if !ok || tp.EventTopic() == "" {
		return ErrInvalidEvent
	}
	t := tp.EventTopic()

	b.mu.RLock()
	var matched []*Subscription
	for _, sub := range b.subs {
		if t.Matches(sub.topic) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	b.eventsPublished.Add(1)
	for _, sub := range matched {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !sub.shouldDeliver(event) {
			continue
		}
		if err := b.dispatch(ctx, sub, event); err != nil {
			b.handlerErrors.Add(1)
			if b.onError != nil {
				b.onError(event, err)
			}
			continue
		}
		b.eventsDelivered.Add(1)
		if sub.config.Once {
			sub.Cancel()
			b.remove(sub)
		}
	}
	return nil
}

func (b *Bus) dispatch(ctx context.Context, sub *Subscription, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			err = &PanicError{SubscriptionID: sub.id, Topic: sub.topic.String(), Value: r}
		}
	}()
	return sub.handler.Handle(ctx, event)
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := 0
	for _, sub := range b.subs {
		if sub.IsActive() {
			active++
		}
	}
	b.mu.RUnlock()

	return Stats{
		EventsPublished:   b.eventsPublished.Load(),
		EventsDelivered:   b.eventsDelivered.Load(),
		HandlerErrors:     b.handlerErrors.Load(),
		HandlerPanics:     b.handlerPanics.Load(),
		ActiveSubscribers: active,
	}
}

package event

import (
	"log/slog"
	"slices"
	"sync"
)

// Bus dispatches triggered events to subscriptions in insertion order.
// The zero value is not usable; create buses with New.
type Bus struct {
	mu        sync.Mutex
	subs      []*Subscription
	destroyed bool

	pending sync.WaitGroup

	logger       *slog.Logger
	panicHandler PanicHandler
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	cfg := defaultBusConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bus{
		subs:         make([]*Subscription, 0),
		logger:       cfg.logger,
		panicHandler: cfg.panicHandler,
	}
}

// Subscribe registers handler for name. An empty name receives every event.
// The returned subscription's Unsubscribe removes exactly this registration.
// Subscribing a nil handler panics with ErrNilHandler.
func (b *Bus) Subscribe(name string, handler Handler, opts ...SubscribeOption) *Subscription {
	if handler == nil {
		panic(ErrNilHandler)
	}
	sub := newSubscription(b, name, handler, opts...)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		sub.removed.Store(true)
		return sub
	}
	i := len(b.subs)
	for i > 0 && b.subs[i-1].priority > sub.priority {
		i--
	}
	b.subs = slices.Insert(b.subs, i, sub)
	return sub
}

// SubscribeOnce registers a handler that fires at most once.
func (b *Bus) SubscribeOnce(name string, handler Handler, opts ...SubscribeOption) *Subscription {
	return b.Subscribe(name, handler, append(opts, WithOnce())...)
}

// SubscribeAsync registers a handler delivered on its own goroutine.
func (b *Bus) SubscribeAsync(name string, handler Handler, opts ...SubscribeOption) *Subscription {
	return b.Subscribe(name, handler, append(opts, WithAsync())...)
}

// SubscribeOnceAsync registers an asynchronous handler that fires at most once.
func (b *Bus) SubscribeOnceAsync(name string, handler Handler, opts ...SubscribeOption) *Subscription {
	return b.Subscribe(name, handler, append(opts, WithOnce(), WithAsync())...)
}

// Unsubscribe removes every subscription that satisfies all filters.
// Without filters it removes every subscription.
func (b *Bus) Unsubscribe(filters ...Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	b.subs = slices.DeleteFunc(b.subs, func(s *Subscription) bool {
		for _, f := range filters {
			if !f(s) {
				return false
			}
		}
		s.removed.Store(true)
		return true
	})
}

// Trigger delivers name and data to every live subscription whose event is
// empty or whose base name (namespace stripped) equals name. Delivery follows
// priority, then registration order.
//
// Subscriptions removed by an earlier handler during the same call are
// skipped; subscriptions added during the call are not delivered until the
// next Trigger.
func (b *Bus) Trigger(name string, data ...any) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	snapshot := slices.Clone(b.subs)
	b.mu.Unlock()

	for _, sub := range snapshot {
		if !sub.matches(name) {
			continue
		}
		if sub.once {
			// Claim the single delivery before removing, so a re-entrant
			// trigger cannot fire it twice.
			if !sub.removed.CompareAndSwap(false, true) {
				continue
			}
			b.Unsubscribe(BySubscription(sub))
		} else if sub.removed.Load() {
			continue
		}

		if sub.async {
			b.deliverAsync(sub, name, slices.Clone(data))
			continue
		}
		sub.handler(name, data...)
	}
}

func (b *Bus) deliverAsync(sub *Subscription, name string, data []any) {
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				err := &PanicError{Event: name, SubscriptionID: sub.id, Value: r}
				b.logger.Error("async event handler panicked",
					"event", name,
					"subscription", sub.id,
					"panic", r,
				)
				if b.panicHandler != nil {
					b.panicHandler(err)
				}
			}
		}()
		sub.handler(name, data...)
	}()
}

// Wait blocks until every asynchronous delivery scheduled so far has
// returned.
func (b *Bus) Wait() {
	b.pending.Wait()
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Destroyed reports whether Destroy has been called.
func (b *Bus) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// Destroy releases every subscription. Later calls on the bus are inert.
// Asynchronous deliveries that were already scheduled still run.
func (b *Bus) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return
	}
	for _, s := range b.subs {
		s.removed.Store(true)
	}
	b.subs = nil
	b.destroyed = true
}

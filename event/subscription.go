package event

import (
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// NamespaceDelimiter separates an event name from its namespace.
const NamespaceDelimiter = ":"

// Handler receives a triggered event name and its payload.
type Handler func(event string, data ...any)

// Subscription is a registered (event, context, handler, once, async) record.
// The handler itself is never annotated; all routing metadata lives here.
type Subscription struct {
	id      string
	event   string
	context any
	handler Handler
	once     bool
	async    bool
	priority Priority

	removed atomic.Bool
	bus     *Bus
}

func newSubscription(b *Bus, name string, handler Handler, opts ...SubscribeOption) *Subscription {
	cfg := subscribeConfig{priority: PriorityNormal}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Subscription{
		id:       "sub-" + uuid.New().String(),
		event:    name,
		context:  cfg.context,
		handler:  handler,
		once:     cfg.once,
		async:    cfg.async,
		priority: cfg.priority,
		bus:      b,
	}
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Event returns the subscribed event name, including any namespace.
// An empty name subscribes to every event.
func (s *Subscription) Event() string {
	return s.event
}

// Context returns the owner identity given with WithContext, or nil.
func (s *Subscription) Context() any {
	return s.context
}

// Once reports whether the subscription is removed after one delivery.
func (s *Subscription) Once() bool {
	return s.once
}

// Async reports whether the handler runs on its own goroutine.
func (s *Subscription) Async() bool {
	return s.async
}

// Priority returns the delivery priority.
func (s *Subscription) Priority() Priority {
	return s.priority
}

// Active reports whether the subscription can still receive events.
func (s *Subscription) Active() bool {
	return !s.removed.Load()
}

// Unsubscribe removes exactly this subscription. Calling it more than once,
// or after the bus was destroyed, does nothing.
func (s *Subscription) Unsubscribe() {
	if s.bus == nil {
		s.removed.Store(true)
		return
	}
	s.bus.Unsubscribe(BySubscription(s))
}

// matches reports whether a trigger of name reaches this subscription.
func (s *Subscription) matches(name string) bool {
	if s.event == "" {
		return true
	}
	return baseName(s.event) == name
}

// baseName strips the namespace suffix from an event name.
func baseName(name string) string {
	if i := strings.Index(name, NamespaceDelimiter); i >= 0 {
		return name[:i]
	}
	return name
}

// Filter selects subscriptions for removal.
type Filter func(*Subscription) bool

// ByEvent matches subscriptions registered for exactly name, namespace
// included.
func ByEvent(name string) Filter {
	return func(s *Subscription) bool {
		return s.event == name
	}
}

// ByContext matches subscriptions tagged with the same owner identity.
func ByContext(ctx any) Filter {
	return func(s *Subscription) bool {
		return sameIdentity(s.context, ctx)
	}
}

// BySubscription matches one specific subscription record.
func BySubscription(sub *Subscription) Filter {
	return func(s *Subscription) bool {
		return s == sub
	}
}

// sameIdentity compares two opaque values without panicking on
// uncomparable types. Maps, slices and funcs compare by pointer.
func sameIdentity(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return equalComparable(a, b)
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		if ta.Kind() == reflect.Slice && va.Len() != vb.Len() {
			return false
		}
		return va.Pointer() == vb.Pointer()
	default:
		return false
	}
}

// equalComparable reports a == b. Types that are comparable in principle can
// still panic when an interface field holds a slice, map or func; such
// values are never the same identity.
func equalComparable(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

package devtools

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/spetersoncode/unistore/event"
	"github.com/spetersoncode/unistore/store"
)

const (
	// JumpAction tags the overwrite Set a bridge issues when time travelling.
	JumpAction = "devtools.jump"

	// InitAction names the first history entry, holding the state the
	// bridge found when it attached.
	InitAction = "devtools.init"

	// DefaultHistorySize is the number of entries kept when no size is set.
	DefaultHistorySize = 100
)

var (
	// ErrEntryNotFound is returned when jumping to an index that is no
	// longer (or not yet) in the history.
	ErrEntryNotFound = errors.New("devtools: history entry not found")

	// ErrStoreDestroyed is returned when the store no longer accepts changes.
	ErrStoreDestroyed = errors.New("devtools: store destroyed")

	// ErrBridgeClosed is returned by operations on a closed bridge.
	ErrBridgeClosed = errors.New("devtools: bridge closed")
)

// Entry is one recorded action.
type Entry struct {
	Index   int         `json:"index"`
	Action  string      `json:"action"`
	Changes store.State `json:"changes,omitempty"`
	State   store.State `json:"state"`
	At      time.Time   `json:"at"`
}

// WatchFunc receives each new entry. Jumps are passed to watchers as
// entries with Index -1 and JumpAction; they are never recorded.
type WatchFunc func(e Entry)

// Option configures a Bridge.
type Option func(*Bridge)

// WithHistorySize bounds the number of entries kept. Older entries are
// dropped first.
func WithHistorySize(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.limit = n
		}
	}
}

// WithLogger sets the logger used for bridge diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Bridge records a store's actions and time-travels through them.
// It is safe for concurrent use.
type Bridge struct {
	store  *store.Store
	sub    *event.Subscription
	limit  int
	logger *slog.Logger

	mu       sync.Mutex
	history  []Entry
	next     int
	watchers map[int]WatchFunc
	watchSeq int
	closed   bool
}

// New attaches a bridge to s. The current state is recorded as the first
// entry, under InitAction.
func New(s *store.Store, opts ...Option) *Bridge {
	b := &Bridge{
		store:    s,
		limit:    DefaultHistorySize,
		logger:   slog.Default(),
		watchers: make(map[int]WatchFunc),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.record(InitAction, nil, s.Get())
	b.sub = s.Subscribe("", b.handle, event.WithPriority(event.PriorityCritical))
	return b
}

// Store returns the store the bridge is attached to.
func (b *Bridge) Store() *store.Store {
	return b.store
}

func (b *Bridge) handle(action string, data ...any) {
	changes := store.Changes(data...)
	state := store.StateOf(data...)
	if state == nil {
		state = b.store.Get()
	}
	if action == JumpAction {
		b.notify(Entry{Index: -1, Action: action, Changes: changes, State: state, At: time.Now()})
		return
	}
	b.record(action, changes, state)
}

func (b *Bridge) record(action string, changes, state store.State) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	e := Entry{
		Index:   b.next,
		Action:  action,
		Changes: changes,
		State:   state,
		At:      time.Now(),
	}
	b.next++
	b.history = append(b.history, e)
	if over := len(b.history) - b.limit; over > 0 {
		b.history = append(b.history[:0:0], b.history[over:]...)
	}
	b.mu.Unlock()

	b.logger.Debug("devtools recorded action", "action", action, "index", e.Index)
	b.notify(e)
}

func (b *Bridge) notify(e Entry) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(b.watchers))
	for id := range b.watchers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	watchers := make([]WatchFunc, len(ids))
	for i, id := range ids {
		watchers[i] = b.watchers[id]
	}
	b.mu.Unlock()

	for _, fn := range watchers {
		fn(e)
	}
}

// History returns a copy of the recorded entries, oldest first.
func (b *Bridge) History() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.history))
	copy(out, b.history)
	return out
}

// Last returns the most recent entry.
func (b *Bridge) Last() (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.history) == 0 {
		return Entry{}, false
	}
	return b.history[len(b.history)-1], true
}

// Entry returns the entry with the given index.
func (b *Bridge) Entry(index int) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.find(index)
}

func (b *Bridge) find(index int) (Entry, bool) {
	if len(b.history) == 0 {
		return Entry{}, false
	}
	i := index - b.history[0].Index
	if i < 0 || i >= len(b.history) {
		return Entry{}, false
	}
	return b.history[i], true
}

// Jump restores the state recorded in the entry with the given index.
// The history itself is left untouched.
func (b *Bridge) Jump(index int) (store.State, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBridgeClosed
	}
	e, ok := b.find(index)
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrEntryNotFound, index)
	}
	return b.replace(e.State)
}

// Replace installs state as the store's whole state.
func (b *Bridge) Replace(state store.State) (store.State, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrBridgeClosed
	}
	if state == nil {
		state = store.State{}
	}
	return b.replace(state)
}

func (b *Bridge) replace(state store.State) (store.State, error) {
	next := b.store.Set(state, store.WithOverwrite(), store.WithAction(JumpAction))
	if next == nil {
		return nil, ErrStoreDestroyed
	}
	b.logger.Debug("devtools replaced state", "keys", len(next))
	return next, nil
}

// Watch calls fn for every entry recorded from now on. fn runs on the
// goroutine that changed the store. The returned function stops watching.
func (b *Bridge) Watch(fn WatchFunc) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := b.watchSeq
	b.watchSeq++
	b.watchers[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watchers, id)
	}
}

// Close detaches the bridge from its store and drops all watchers.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.watchers = map[int]WatchFunc{}
	b.mu.Unlock()

	b.sub.Unsubscribe()
}

package store

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/spetersoncode/unistore/event"
	"github.com/spetersoncode/unistore/internal/throttle"
	"github.com/spetersoncode/unistore/retry"
)

const (
	// DefaultAction is the action name Set notifies with when none is given.
	DefaultAction = "set"

	// LoadAction tags the silent updates made while hydrating from storage.
	// Sets with this action never schedule persistence.
	LoadAction = "store.loadPersisted"
)

// Phase is a point in a store's lifecycle.
type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseHydrating
	PhaseReady
	PhaseDestroyed
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseHydrating:
		return "hydrating"
	case PhaseReady:
		return "ready"
	case PhaseDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Store holds a single mutable State, notifies subscribers of changes and
// optionally persists selected keys through an Adapter.
//
// Notifications are delivered synchronously inside Set, so a subscriber
// reading Get sees the new state. Handlers may call Set re-entrantly.
type Store struct {
	mu    sync.RWMutex
	state State
	phase Phase

	bus      *event.Bus
	policies Policies
	adapter  Adapter
	logger   *slog.Logger
	retry    retry.Config

	ctx    context.Context
	cancel context.CancelFunc

	persistThrottled *throttle.Throttler[State]
}

// New creates a store holding initial (an empty state if nil).
//
// When both policies and an adapter are configured, previously persisted
// values are loaded and stale entries of disabled keys are purged before New
// returns.
func New(initial State, opts ...Option) *Store {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if initial == nil {
		initial = State{}
	}

	ctx, cancel := context.WithCancel(cfg.ctx)
	s := &Store{
		state:    initial,
		phase:    PhaseUninitialized,
		bus:      event.New(event.WithLogger(cfg.logger)),
		policies: cfg.policies,
		adapter:  cfg.adapter,
		logger:   cfg.logger,
		retry:    cfg.retry,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.persistThrottled = throttle.New(cfg.interval, s.Persist)

	if s.persistenceEnabled() {
		s.setPhase(PhaseHydrating)
		s.LoadPersisted()
		s.CleanFalsyPersistedKeys()
	}
	s.setPhase(PhaseReady)
	return s
}

func (s *Store) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

// Phase returns the current lifecycle phase.
func (s *Store) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Policies returns the configured persistence policies.
func (s *Store) Policies() Policies {
	return s.policies
}

// Adapter returns the underlying adapter.
func (s *Store) Adapter() Adapter {
	return s.adapter
}

func (s *Store) persistenceEnabled() bool {
	return s.policies != nil && s.adapter != nil
}

// Set applies data to the state and returns the new state.
//
// By default data is merged over the current top-level keys; WithOverwrite
// replaces the state with a copy of data instead. Unless WithSilent is
// given, subscribers are notified with the action name, data itself and the
// state this call produced (see Changes and StateOf). A nil data is a no-op that returns the current state.
// On a destroyed store Set does nothing and returns nil.
func (s *Store) Set(data State, opts ...SetOption) State {
	cfg := setConfig{action: DefaultAction}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	if s.phase == PhaseDestroyed {
		s.mu.Unlock()
		return nil
	}
	if data == nil {
		current := s.state
		s.mu.Unlock()
		return current
	}
	var next State
	if cfg.overwrite {
		next = maps.Clone(data)
	} else {
		next = merge(s.state, data)
	}
	s.state = next
	s.mu.Unlock()

	if !cfg.silent {
		s.bus.Trigger(cfg.action, data, next)
	}

	if cfg.action != LoadAction && s.persistenceEnabled() {
		// Subscribers may have changed the state again; persist the latest.
		if current := s.Get(); current != nil {
			s.persistThrottled.Call(current)
		}
	}

	return next
}

// Get returns the current state, or nil once the store is destroyed.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Lookup returns the value at a dot-separated path ("user.tags.0"), or def
// when any segment is missing. A present nil value is returned as nil.
func (s *Store) Lookup(path string, def any) any {
	state := s.Get()
	if path == "" {
		if state == nil {
			return def
		}
		return state
	}
	if v, ok := lookup(state, path); ok {
		return v
	}
	return def
}

// Select applies fn to the current state. It returns def when fn returns nil
// or panics, so selectors may index into the state without guarding.
func (s *Store) Select(fn func(State) any, def any) (result any) {
	defer func() {
		if r := recover(); r != nil {
			result = def
		}
	}()
	if v := fn(s.Get()); v != nil {
		return v
	}
	return def
}

// Subscribe registers handler on the store's bus. Handlers receive the
// action name, the change payload and the resulting state; use Changes and
// StateOf to extract them.
func (s *Store) Subscribe(action string, handler event.Handler, opts ...event.SubscribeOption) *event.Subscription {
	return s.bus.Subscribe(action, handler, opts...)
}

// SubscribeOnce registers a handler that fires at most once.
func (s *Store) SubscribeOnce(action string, handler event.Handler, opts ...event.SubscribeOption) *event.Subscription {
	return s.bus.SubscribeOnce(action, handler, opts...)
}

// SubscribeAsync registers a handler delivered on its own goroutine.
func (s *Store) SubscribeAsync(action string, handler event.Handler, opts ...event.SubscribeOption) *event.Subscription {
	return s.bus.SubscribeAsync(action, handler, opts...)
}

// Unsubscribe removes the subscriptions matching all filters.
func (s *Store) Unsubscribe(filters ...event.Filter) {
	s.bus.Unsubscribe(filters...)
}

// Trigger notifies subscribers without changing the state.
func (s *Store) Trigger(action string, data ...any) {
	s.bus.Trigger(action, data...)
}

// Wait blocks until asynchronous subscribers scheduled so far have returned.
func (s *Store) Wait() {
	s.bus.Wait()
}

// Destroy cancels any pending persistence write and refuses later ones,
// then releases the state and
// the bus. Later mutations are no-ops.
func (s *Store) Destroy() {
	s.mu.Lock()
	if s.phase == PhaseDestroyed {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseDestroyed
	s.mu.Unlock()

	s.persistThrottled.Stop()

	s.mu.Lock()
	s.state = nil
	s.mu.Unlock()

	s.bus.Destroy()
	s.cancel()
}

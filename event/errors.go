package event

import "errors"

// ErrNilHandler is the panic value used when a nil handler is subscribed.
var ErrNilHandler = errors.New("event: handler cannot be nil")

// PanicError wraps a value recovered from an asynchronous handler.
type PanicError struct {
	// Event is the name the handler was triggered with.
	Event string

	// SubscriptionID identifies the subscription whose handler panicked.
	SubscriptionID string

	// Value is the value passed to panic().
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "event: handler panic for subscription " + e.SubscriptionID + " on " + e.Event
}

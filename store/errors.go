package store

import (
	"errors"
	"fmt"
)

// ErrAdapterClosed indicates the adapter has been closed.
var ErrAdapterClosed = errors.New("store: adapter closed")

// SerializationError wraps JSON marshaling/unmarshaling errors with context.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("store: serialization error for key %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// AdapterError wraps a failed storage call.
type AdapterError struct {
	Op  string // get, set or delete
	Key string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("store: adapter %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

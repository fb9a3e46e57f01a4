package event

import "log/slog"

// Priority orders delivery among subscriptions matching the same event.
type Priority int

const (
	// PriorityCritical is for observers that must see a change before any
	// subscriber reacts to it, such as recorders.
	PriorityCritical Priority = 0

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 200

	// PriorityLow is for handlers that should run after everything else.
	PriorityLow Priority = 300
)

// PanicHandler is called when an asynchronous handler panics.
type PanicHandler func(err *PanicError)

// Option configures a Bus.
type Option func(*busConfig)

type busConfig struct {
	logger       *slog.Logger
	panicHandler PanicHandler
}

func defaultBusConfig() busConfig {
	return busConfig{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for recovered handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *busConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPanicHandler sets a callback for panics recovered from asynchronous
// handlers. The panic is logged either way.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *busConfig) {
		c.panicHandler = h
	}
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	context  any
	once     bool
	async    bool
	priority Priority
}

// WithContext tags the subscription with an owner identity so it can later be
// removed with [ByContext]. The value is only compared, never dereferenced.
func WithContext(ctx any) SubscribeOption {
	return func(c *subscribeConfig) {
		c.context = ctx
	}
}

// WithPriority sets the delivery priority. Lower values are delivered
// first; subscriptions with equal priority keep registration order.
func WithPriority(p Priority) SubscribeOption {
	return func(c *subscribeConfig) {
		c.priority = p
	}
}

// WithOnce removes the subscription before its first delivery.
func WithOnce() SubscribeOption {
	return func(c *subscribeConfig) {
		c.once = true
	}
}

// WithAsync delivers to the handler on a separate goroutine after Trigger
// returns control to its caller.
func WithAsync() SubscribeOption {
	return func(c *subscribeConfig) {
		c.async = true
	}
}

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/spetersoncode/unistore/retry"
)

// DefaultPersistInterval is the window in which persistence writes coalesce.
const DefaultPersistInterval = 50 * time.Millisecond

// Option configures a Store.
type Option func(*config)

type config struct {
	policies Policies
	adapter  Adapter
	logger   *slog.Logger
	interval time.Duration
	ctx      context.Context
	retry    retry.Config
}

func defaultConfig() config {
	return config{
		logger:   slog.Default(),
		interval: DefaultPersistInterval,
		ctx:      context.Background(),
		retry:    retry.Disabled(),
	}
}

// WithPolicies sets the per-key persistence policies. Persistence is only
// active when an adapter is configured as well.
func WithPolicies(p Policies) Option {
	return func(c *config) {
		c.policies = p
	}
}

// WithAdapter sets the storage capability used for persistence.
func WithAdapter(a Adapter) Option {
	return func(c *config) {
		c.adapter = a
	}
}

// WithLogger sets the logger that receives swallowed persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPersistInterval sets the throttle window for persistence writes.
func WithPersistInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithContext sets the base context passed to adapter calls. The store
// derives its own context from it and cancels that on Destroy.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithRetry retries adapter calls that fail with a transient error (see
// retry.IsTransient) using cfg's backoff. Retries are disabled by default.
// Backoff waits end early when the store is destroyed.
func WithRetry(cfg retry.Config) Option {
	return func(c *config) {
		c.retry = cfg
	}
}

// SetOption configures a single Set call.
type SetOption func(*setConfig)

type setConfig struct {
	action    string
	overwrite bool
	silent    bool
}

// WithAction names the action subscribers are notified with.
// The default is DefaultAction.
func WithAction(name string) SetOption {
	return func(c *setConfig) {
		c.action = name
	}
}

// WithOverwrite replaces the whole state instead of merging into it.
func WithOverwrite() SetOption {
	return func(c *setConfig) {
		c.overwrite = true
	}
}

// WithSilent skips subscriber notification.
func WithSilent() SetOption {
	return func(c *setConfig) {
		c.silent = true
	}
}

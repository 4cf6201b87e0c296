package feedship

import (
	"github.com/bft-labs/feedship/internal/adapters/clock"
	logAdapter "github.com/bft-labs/feedship/internal/adapters/log"
	"github.com/bft-labs/feedship/internal/ports"
)

// Option configures optional behavior of Feedship.
type Option func(*options)

// options holds the optional configuration for a Feedship instance.
type options struct {
	logger       ports.Logger
	clock        ports.Clock
	eventHandler EventHandler
	plugins      []Plugin
}

func defaultOptions() options {
	return options{
		logger: logAdapter.NewNoopLogger(),
		clock:  clock.New(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for feedship events.
// Events are called synchronously from the run goroutine.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Run starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithClock replaces the wall clock used for backoff and rate limiting.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

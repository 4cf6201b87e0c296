package feedship

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bft-labs/feedship/internal/app"
	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// Feedship drains a record source into a sink in size-bounded batches.
// Use New() to create an instance, then Run() to start delivery.
type Feedship struct {
	config  Config
	driver  *app.Driver
	logger  ports.Logger
	plugins []Plugin

	started atomic.Bool
	done    chan struct{}
}

// New creates a Feedship instance reading from source and delivering to sink.
// Zero config fields are filled with defaults.
// Returns an error wrapping ErrInvalidConfig if the configuration is invalid.
func New(cfg Config, source RecordSource, sink Sink, opts ...Option) (*Feedship, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil || sink == nil {
		return nil, domain.ErrInvalidConfig
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var emitter app.Emitter
	if o.eventHandler != nil {
		emitter = &eventEmitterWrapper{handler: o.eventHandler}
	}

	return &Feedship{
		config:  cfg,
		driver:  app.NewDriver(cfg.driverConfig(), source, sink, o.clock, o.logger, emitter),
		logger:  o.logger,
		plugins: o.plugins,
		done:    make(chan struct{}),
	}, nil
}

// Run initializes plugins, then reads and delivers records until the source
// is exhausted, Shutdown is called or a batch exhausts its retries.
// The summary is valid even when an error is returned.
// Run may only be called once; later calls return ErrAlreadyStopped.
func (f *Feedship) Run(ctx context.Context) (Summary, error) {
	if !f.started.CompareAndSwap(false, true) {
		return f.Summary(), domain.ErrAlreadyStopped
	}
	defer close(f.done)

	initialized, err := f.initPlugins(ctx)
	defer f.shutdownPlugins(initialized)
	if err != nil {
		return f.Summary(), err
	}

	summary, err := f.driver.Run(ctx)
	return convertSummary(summary), err
}

func (f *Feedship) initPlugins(ctx context.Context) ([]Plugin, error) {
	pluginCfg := PluginConfig{
		ConfigPath:      f.config.ConfigPath,
		Logger:          f.logger,
		SendInterval:    f.config.SendInterval,
		SetSendInterval: f.driver.SetSendInterval,
	}

	initialized := make([]Plugin, 0, len(f.plugins))
	for _, p := range f.plugins {
		if err := p.Initialize(ctx, pluginCfg); err != nil {
			f.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			return initialized, err
		}
		f.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
		initialized = append(initialized, p)
	}
	return initialized, nil
}

// shutdownPlugins stops plugins in reverse order. A failing plugin does not
// prevent the others from shutting down.
func (f *Feedship) shutdownPlugins(plugins []Plugin) {
	ctx, cancel := context.WithTimeout(context.Background(), f.config.ShutdownTimeout)
	defer cancel()

	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			f.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		f.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
}

// Shutdown requests a graceful drain and returns immediately.
// The batch in flight completes, the partial batch is flushed, then Run returns.
// Safe to call from any goroutine, more than once.
func (f *Feedship) Shutdown() {
	f.driver.Shutdown()
}

// Stop requests a graceful drain and waits up to Config.ShutdownTimeout for
// Run to return. Returns ErrShutdownTimeout if the wait expires.
func (f *Feedship) Stop() error {
	f.driver.Shutdown()
	if !f.started.Load() {
		return nil
	}
	return f.WaitWithTimeout(f.config.ShutdownTimeout)
}

// Done is closed when Run returns, after plugins are shut down.
func (f *Feedship) Done() <-chan struct{} {
	return f.done
}

// WaitWithTimeout waits for Run to return.
// Returns ErrShutdownTimeout if the timeout expires.
func (f *Feedship) WaitWithTimeout(timeout time.Duration) error {
	select {
	case <-f.done:
		return nil
	case <-time.After(timeout):
		f.logger.Warn("shutdown timeout, forcing exit", ports.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}

// SetSendInterval changes the minimum interval between successful sends.
// Safe to call while Run is in progress.
func (f *Feedship) SetSendInterval(interval time.Duration) {
	f.driver.SetSendInterval(interval)
}

// State returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (f *Feedship) State() State {
	return convertState(f.driver.State())
}

// Stats returns a snapshot of the run counters.
func (f *Feedship) Stats() Stats {
	return f.driver.Stats()
}

// Failures returns the batches that exhausted their retries or were rejected so far.
func (f *Feedship) Failures() []FailureRecord {
	return f.driver.Failures()
}

// Summary returns the current counters, state and failure ledger.
func (f *Feedship) Summary() Summary {
	return convertSummary(f.driver.Summary())
}

package feedship

import (
	"fmt"
	"time"

	"github.com/bft-labs/feedship/internal/app"
	"github.com/bft-labs/feedship/internal/domain"
)

// Config holds the batching and delivery settings of a Feedship instance.
type Config struct {
	// MaxBatchSize is the upper bound, in bytes, of an encoded batch.
	MaxBatchSize int
	// SafetyMargin is subtracted from MaxBatchSize to get the packing ceiling.
	SafetyMargin int

	// MaxRetries is the total number of attempts per batch.
	MaxRetries int
	// RetryDelay is the base of the exponential backoff.
	// Zero means the default; use NoRetryDelay to retry without waiting.
	RetryDelay time.Duration
	// RetryMaxDelay caps a single backoff wait. Zero means uncapped.
	RetryMaxDelay time.Duration
	// SendInterval is the minimum time between successful sends. Zero means unlimited.
	SendInterval time.Duration

	// ContinueOnFailure keeps going after a batch exhausts its retries.
	ContinueOnFailure bool

	// ShutdownTimeout bounds Stop. Default: 30 seconds.
	ShutdownTimeout time.Duration

	// ConfigPath is the config file handed to plugins. Optional.
	ConfigPath string
}

// NoRetryDelay disables the backoff between attempts.
const NoRetryDelay time.Duration = -1

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:    app.DefaultMaxBatchSize,
		SafetyMargin:    app.DefaultSafetyMargin,
		MaxRetries:      app.DefaultMaxRetries,
		RetryDelay:      app.DefaultRetryDelay,
		ShutdownTimeout: app.ShutdownTimeout,
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = d.MaxBatchSize
	}
	if c.SafetyMargin == 0 {
		c.SafetyMargin = d.SafetyMargin
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.MaxBatchSize <= 0:
		return fmt.Errorf("%w: max batch size must be positive", domain.ErrInvalidConfig)
	case c.SafetyMargin <= 0 || c.SafetyMargin >= c.MaxBatchSize:
		return fmt.Errorf("%w: safety margin must be in (0, %d)", domain.ErrInvalidConfig, c.MaxBatchSize)
	case c.MaxRetries < 1:
		return fmt.Errorf("%w: max retries must be at least 1", domain.ErrInvalidConfig)
	case (c.RetryDelay < 0 && c.RetryDelay != NoRetryDelay) || c.RetryMaxDelay < 0 || c.SendInterval < 0:
		return fmt.Errorf("%w: delays must not be negative", domain.ErrInvalidConfig)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown timeout must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

func (c Config) driverConfig() app.DriverConfig {
	return app.DriverConfig{
		MaxBatchSize: c.MaxBatchSize,
		SafetyMargin: c.SafetyMargin,
		Pipeline: app.PipelineConfig{
			MaxRetries:      c.MaxRetries,
			RetryDelay:      max(c.RetryDelay, 0),
			RetryMaxDelay:   c.RetryMaxDelay,
			MinSendInterval: c.SendInterval,
		},
		ContinueOnFailure: c.ContinueOnFailure,
	}
}

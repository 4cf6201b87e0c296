package feedship

import (
	"context"
	"time"
)

// Plugin extends a Feedship run with optional behavior.
type Plugin interface {
	// Name returns a unique identifier used in logs.
	Name() string

	// Initialize is called before the first record is read.
	// An error aborts Run.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called after the run ends, in reverse registration order.
	Shutdown(ctx context.Context) error
}

// PluginConfig is passed to plugins at initialization.
type PluginConfig struct {
	// ConfigPath is the config file the run was loaded from. May be empty.
	ConfigPath string

	Logger Logger

	// SendInterval is the interval in effect when the run starts.
	SendInterval time.Duration

	// SetSendInterval changes the minimum interval between sends at runtime.
	SetSendInterval func(time.Duration)
}

// BasePlugin provides no-op Initialize and Shutdown.
// Embed it and override what you need.
type BasePlugin struct {
	name string
}

// NewBasePlugin returns a BasePlugin with the given name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

func (b BasePlugin) Name() string                                   { return b.name }
func (b BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (b BasePlugin) Shutdown(context.Context) error                 { return nil }

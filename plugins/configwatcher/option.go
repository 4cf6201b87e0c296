package configwatcher

import "github.com/bft-labs/feedship"

// WithConfigWatcher returns a feedship Option that enables config file watching.
// The file is taken from Config.ConfigPath of the feedship instance.
//
// Usage:
//
//	f, err := feedship.New(cfg, src, sink,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) feedship.Option {
	return feedship.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher returns a feedship Option that enables config
// watching with default settings (debounce 100ms).
func WithDefaultConfigWatcher() feedship.Option {
	return WithConfigWatcher(DefaultConfig())
}

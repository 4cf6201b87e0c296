// Package configwatcher provides config file monitoring for feedship.
// When enabled, it watches the run's config file and applies changes to
// send_interval without restarting.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/feedship"
	"github.com/bft-labs/feedship/internal/cliconfig"
)

// Plugin reloads send_interval when the config file changes.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay time.Duration

	// Runtime state
	path     string
	current  time.Duration
	apply    func(time.Duration)
	logger   feedship.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{debounceDelay: cfg.DebounceDelay}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching cfg.ConfigPath.
func (p *Plugin) Initialize(ctx context.Context, cfg feedship.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.ConfigPath
	p.current = cfg.SendInterval
	p.apply = cfg.SetSendInterval
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" || p.apply == nil {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Editors replace files on save, so the directory is watched.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", feedship.LogField{Key: "path", Value: p.path})

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", feedship.LogField{Key: "error", Value: err})
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload reads send_interval and applies it when it changed. A file that
// cannot be read or parsed keeps the current interval.
func (p *Plugin) reload() {
	interval, ok, err := cliconfig.LoadSendInterval(p.path)
	if err != nil {
		p.logger.Error("config reload failed, keeping current send interval",
			feedship.LogField{Key: "path", Value: p.path},
			feedship.LogField{Key: "error", Value: err})
		return
	}
	if !ok {
		return
	}

	p.mu.Lock()
	changed := interval != p.current
	p.current = interval
	p.mu.Unlock()

	if !changed {
		return
	}
	p.logger.Info("config reloaded", feedship.LogField{Key: "send_interval", Value: interval})
	p.apply(interval)
}

// SendInterval returns the last interval applied by the plugin.
func (p *Plugin) SendInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

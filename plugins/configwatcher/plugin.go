// Package configwatcher provides config file monitoring for tickship.
// When enabled, it watches the directory holding the config file and calls
// back after the file was written, renamed into place or recreated.
package configwatcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/tickship/pkg/log"
	"github.com/bft-labs/tickship/pkg/tickship"
)

// ErrNoPath is returned by Initialize when no config file path is set.
var ErrNoPath = errors.New("configwatcher: config path required")

// Plugin implements config watching functionality.
// Editors usually replace files instead of writing them in place, so the
// parent directory is watched and events are filtered by file name.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	onChange      func(path string)

	logger   tickship.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	changes  int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch. Required.
	Path string

	// DebounceDelay is the delay to wait after a file change before calling
	// OnChange. Bursts of events within the delay collapse into one call.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// OnChange is called with Path after the file changed.
	OnChange func(path string)
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
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		onChange:      cfg.OnChange,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file's directory.
func (p *Plugin) Initialize(ctx context.Context, cfg tickship.PluginConfig) error {
	if p.path == "" {
		return ErrNoPath
	}
	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}

	path, err := filepath.Abs(p.path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	// The watcher outlives Start's context only until Shutdown.
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.mu.Lock()
	p.path = path
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("watching config file", log.String("path", path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher. A pending debounced callback is dropped.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

// Changes returns how many debounced change notifications were delivered.
func (p *Plugin) Changes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changes
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
			p.debounceNotify(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceNotify(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.mu.Lock()
		p.changes++
		p.mu.Unlock()

		p.logger.Info("config file changed", log.String("path", p.path))
		if p.onChange != nil {
			p.onChange(p.path)
		}
	})
}

// Ensure Plugin implements tickship.Plugin.
var _ tickship.Plugin = (*Plugin)(nil)

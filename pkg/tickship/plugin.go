package tickship

import "context"

// PluginConfig is handed to plugins on initialization.
type PluginConfig struct {
	Name        string
	Transport   string
	EpisodeAddr string
	Logger      Logger
}

// Plugin extends a Tickship instance.
// Plugins are initialized in registration order on Start and shut down in
// reverse order on Stop. A plugin that also implements EventHandler
// receives every event.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// BasePlugin implements Plugin with no-op hooks.
type BasePlugin struct {
	name string
}

// NewBasePlugin creates a BasePlugin with the given name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

// Name returns the plugin name.
func (b BasePlugin) Name() string { return b.name }

// Initialize does nothing.
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }

// Shutdown does nothing.
func (BasePlugin) Shutdown(context.Context) error { return nil }

package tickship

import "github.com/bft-labs/tickship/pkg/log"

// Option configures optional behavior of Tickship.
type Option func(*options)

// options holds the optional configuration for a Tickship instance.
type options struct {
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
	episode      EpisodeHandle
	frameSource  FrameSource
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
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

// WithEventHandler sets a handler for tickship events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Tickship starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithEpisode injects the episode handle batches are submitted to.
// The caller owns the handle; Tickship never closes it. Config.Transport is
// ignored when set.
func WithEpisode(episode EpisodeHandle) Option {
	return func(o *options) {
		o.episode = episode
	}
}

// WithFrameSource replaces the synthetic or scripted frame source.
func WithFrameSource(source FrameSource) Option {
	return func(o *options) {
		o.frameSource = source
	}
}

package configwatcher

import "github.com/bft-labs/tickship/pkg/tickship"

// WithConfigWatcher returns a tickship Option that enables config file watching.
//
// Usage:
//
//	ts, err := tickship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:     "/etc/tickship/config.toml",
//	        OnChange: reload,
//	    }),
//	)
func WithConfigWatcher(cfg Config) tickship.Option {
	return tickship.WithPlugin(New(cfg))
}

package statewatcher

import "github.com/bft-labs/streamkeeper/pkg/streamkeeper"

// WithStateWatcher returns a streamkeeper Option that ticks as soon as the
// state file is edited or removed by hand.
//
// Usage:
//
//	sk, err := streamkeeper.New(cfg, provider,
//	    statewatcher.WithStateWatcher(statewatcher.Config{
//	        DebounceDelay: time.Second,
//	    }),
//	)
func WithStateWatcher(cfg Config) streamkeeper.Option {
	return streamkeeper.WithPlugin(New(cfg))
}

// WithDefaultStateWatcher enables state watching with a 500ms debounce.
func WithDefaultStateWatcher() streamkeeper.Option {
	return WithStateWatcher(DefaultConfig())
}

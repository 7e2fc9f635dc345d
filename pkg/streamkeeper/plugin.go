package streamkeeper

import "context"

// Plugin extends a Streamkeeper instance with optional behaviour.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize is called on Start. Background work must stop when ctx is
	// done or Shutdown is called.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called on Stop.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on Initialize.
type PluginConfig struct {
	// StateDir is the directory holding the state file.
	StateDir string

	// StateFile is the full path of the state file.
	StateFile string

	Logger Logger

	// Trigger requests an immediate tick. It never blocks; a request made
	// while one is pending is dropped.
	Trigger func()
}

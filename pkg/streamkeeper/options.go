package streamkeeper

import "github.com/bft-labs/streamkeeper/pkg/log"

// Option configures optional behavior of Streamkeeper.
type Option func(*options)

// options holds the optional configuration for a Streamkeeper instance.
type options struct {
	logger       Logger
	clock        Clock
	eventHandler EventHandler
	plugins      []Plugin
	stateRepo    StateRepository
	output       OutputController
	notifier     Notifier
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
		o.logger = logger
	}
}

// WithClock replaces the wall clock. Intended for tests.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithEventHandler sets a handler for keeper events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Streamkeeper starts.
// Plugins are initialized in registration order and shutdown in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithStateRepository replaces the JSON state file in Config.StateDir.
func WithStateRepository(repo StateRepository) Option {
	return func(o *options) {
		o.stateRepo = repo
	}
}

// WithOutputController sets the encoder driven during go-live. Without one,
// go-live is skipped and the stream has to be started by hand.
func WithOutputController(output OutputController) Option {
	return func(o *options) {
		o.output = output
	}
}

// WithNotifier sets where new broadcasts are announced. Without one, nothing
// is announced.
func WithNotifier(notifier Notifier) Option {
	return func(o *options) {
		o.notifier = notifier
	}
}

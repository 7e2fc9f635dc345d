// Package log provides the logging abstraction used by streamkeeper.
//
// The keeper and its adapters log through the [Logger] interface with typed
// [Field] values. [ZerologAdapter] is the production implementation;
// [NoopLogger] discards everything and is used by tests and embedders that do
// not want output.
//
//	logger := log.NewZerologAdapterWithLogger(log.NewConsole(os.Stderr, zerolog.InfoLevel))
//	logger.Info("tick complete", log.String("action", "noop"))
package log

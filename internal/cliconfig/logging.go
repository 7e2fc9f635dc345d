package cliconfig

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/streamkeeper/pkg/log"
)

// Logger returns the CLI console logger at the given level. An unparsable
// level falls back to info.
func Logger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return log.NewConsole(os.Stderr, lvl)
}

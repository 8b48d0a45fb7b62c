package cliconfig

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/tickship/pkg/log"
)

var logger = log.NewConsoleLogger(os.Stderr)

// Logger returns the CLI logger.
func Logger() zerolog.Logger {
	return logger
}

// SetLogLevel applies a level name (debug, info, warn, error) globally.
func SetLogLevel(name string) error {
	level, err := log.ParseLevel(name)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

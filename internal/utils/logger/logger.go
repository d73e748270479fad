// Package logger provides the package-level zap logger used throughout
// pbr-storage, matching the logger.Logger() call convention used across the
// teacher's cmd and internal packages.
package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once sync.Once
	log  *zap.SugaredLogger
)

// Logger returns the process-wide sugared logger, initializing it on first
// use in production mode. Call SetVerbose before the first Logger() call
// to switch to development (debug-enabled, human-readable) output.
func Logger() *zap.SugaredLogger {
	once.Do(func() {
		log = newLogger(verbose)
	})
	return log
}

var verbose bool

// SetVerbose selects development-mode logging (debug level, console
// encoding) for subsequent Logger() calls. Has no effect after Logger() has
// already been initialized.
func SetVerbose(v bool) {
	verbose = v
}

func newLogger(verbose bool) *zap.SugaredLogger {
	var z *zap.Logger
	var err error
	if verbose {
		z, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.DisableStacktrace = true
		cfg.Encoding = "console"
		cfg.EncoderConfig.TimeKey = "ts"
		z, err = cfg.Build()
	}
	if err != nil {
		z = zap.NewNop()
	}
	return z.Sugar()
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

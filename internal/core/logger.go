package core

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger   *zap.Logger
	loggerMu sync.RWMutex
)

// Logger returns the shared logger. It is a no-op logger until SetLogger
// is called.
func Logger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// SetLogger configures the logger used by the buffer layer and backends.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// SetDefaultLogger installs the logger returned by build unless one has
// already been set. build is only called when it will be used.
func SetDefaultLogger(build func() (*zap.Logger, error)) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		return nil
	}
	l, err := build()
	if err != nil {
		return err
	}
	logger = l
	return nil
}

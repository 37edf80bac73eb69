package sock

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() { logger.Store(zap.NewNop()) }

// SetLogger installs the diagnostics logger used by sockets, listeners and
// detectors. Logging never influences results. A nil l restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.Named("sock"))
}

func log() *zap.Logger { return logger.Load() }

package heap

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the logger used by heaps whose Config.Logger is nil.
// Collections, materializations and finalizer panics are reported on it
// under the name "heap". It discards everything until SetLogger is called.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger sets the logger for heaps created afterwards. Heaps already
// open keep the logger they started with. A nil l restores the no-op
// default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger.Store(nil)
		return
	}
	logger.Store(l.Named("heap"))
}

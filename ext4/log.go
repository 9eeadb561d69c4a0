package ext4

import "go.uber.org/zap"

// Logger is the structured diagnostic sink threaded through Filesystem.
// It is observational only: nothing in this package changes behavior
// based on whether a Logger is configured, and a Logger never suppresses
// or replaces a returned error.
type Logger struct {
	z *zap.Logger
}

// NewLogger wraps an existing zap logger.
func NewLogger(z *zap.Logger) Logger {
	if z == nil {
		return NewNopLogger()
	}
	return Logger{z: z}
}

// NewNopLogger returns a Logger that discards everything, the default
// when a MountOptions does not configure one.
func NewNopLogger() Logger {
	return Logger{z: zap.NewNop()}
}

func (l Logger) warnIoError(op string, fields ...zap.Field) {
	l.z.Warn("ext4: io error", append([]zap.Field{zap.String("op", op)}, fields...)...)
}

func (l Logger) warnMalformed(op string, fields ...zap.Field) {
	l.z.Warn("ext4: malformed record", append([]zap.Field{zap.String("op", op)}, fields...)...)
}

func (l Logger) debugCache(hit bool, key string) {
	l.z.Debug("ext4: cache lookup", zap.Bool("hit", hit), zap.String("key", key))
}

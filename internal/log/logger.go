// Package log provides structured logging for the achievement runtime
// using zap, adapted from the teacher's zap-wrapping Logger (Init/New/
// NewNop, category-scoped children, structured field helpers) with the
// stub/detector/trace helpers replaced by frame-evaluation and
// network-retry equivalents (spec §4.8's enable_logging/event handler).
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with achievement-runtime-specific helpers.
type Logger struct {
	*zap.Logger
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration.
// Safe to call multiple times; only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a new Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	// Shorter timestamps in development
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fallback to no-op if config fails
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// FrameEvaluate logs one frame's evaluation summary: how many triggers
// fired, were primed, or were invalidated this frame.
func (l *Logger) FrameEvaluate(triggered, primed, invalidated int) {
	l.Debug("frame evaluate",
		zap.Int("triggered", triggered),
		zap.Int("primed", primed),
		zap.Int("invalidated", invalidated),
	)
}

// TriggerStateChange logs an achievement or leaderboard trigger's state
// transition (spec §4.5's state machine).
func (l *Logger) TriggerStateChange(id uint32, from, to string) {
	l.Debug("trigger state change",
		zap.Uint32("id", id),
		zap.String("from", from),
		zap.String("to", to),
	)
}

// ServerRetry logs a scheduled retry of a failed server call (spec
// §4.8's retry/backoff policy).
func (l *Logger) ServerRetry(api string, attempt int, delaySeconds int, err error) {
	l.Warn("server retry scheduled",
		zap.String("api", api),
		zap.Int("attempt", attempt),
		zap.Int("delay_s", delaySeconds),
		zap.Error(err),
	)
}

// ServerError logs a semantic (Success:false) server failure that will
// not be retried (spec §4.8).
func (l *Logger) ServerError(api string, msg string) {
	l.Warn("server error",
		zap.String("api", api),
		zap.String("message", msg),
	)
}

// MemrefInvalidated logs a short read permanently disabling an address
// (spec §4.2 invalidation, §7 "disable the affected artifacts exactly
// once").
func (l *Logger) MemrefInvalidated(address uint32) {
	l.Info("memref invalidated", Addr(address))
}

// WithCategory returns a logger with the category field preset.
func (l *Logger) WithCategory(category string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("cat", category))}
}

// Hex formats a uint32 address as a hex string for logging.
func Hex(addr uint32) string {
	const digits = "0123456789abcdef"
	if addr == 0 {
		return "0x0"
	}
	buf := make([]byte, 8)
	i := len(buf)
	v := addr
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return "0x" + string(buf[i:])
}

// Addr creates an address field.
func Addr(addr uint32) zap.Field {
	return zap.String("addr", Hex(addr))
}

// Size creates a byte-width field.
func Size(size int) zap.Field {
	return zap.Int("size", size)
}

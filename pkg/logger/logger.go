package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu       sync.Mutex
	instance *zap.Logger
)

// Get returns the process-wide logger. Before Init it falls back to a
// production logger at info level so early callers never receive nil.
func Get() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = build("info", false)
	}
	return instance
}

// Init builds the logger from config and makes it the process logger.
func Init(level string, development bool) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	instance = build(level, development)
	return instance
}

// Replace swaps in a prebuilt logger. Tests use it with zaptest.
func Replace(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	instance = l
}

// Sync flushes buffered entries. Safe to call on shutdown paths.
func Sync() {
	mu.Lock()
	l := instance
	mu.Unlock()
	if l != nil {
		_ = l.Sync()
	}
}

func build(level string, development bool) *zap.Logger {
	lvl := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(level); err == nil && level != "" {
		lvl = parsed
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return l
}

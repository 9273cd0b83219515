package logger

import (
	"log"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger
	once   sync.Once
)

// Init builds the global logger. Production mode emits JSON at the given
// level; anything else gets a colored development console logger.
func Init(env, level string) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(level, zapcore.InfoLevel))
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(level, zapcore.DebugLevel))
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		log.Fatalf("logger: failed to initialize: %v", err)
	}
	global = l
}

// Get returns the global logger, initializing a development logger if Init
// was never called (useful in tests).
func Get() *zap.Logger {
	if global == nil {
		once.Do(func() {
			if global == nil {
				Init("development", "debug")
			}
		})
	}
	return global
}

func parseLevel(s string, fallback zapcore.Level) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return fallback
	}
	return lvl
}

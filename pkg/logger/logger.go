// Package logger provides the process-wide structured logger
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// Config describes where and how verbosely the service logs
	Config struct {
		LogFile   string `yaml:"log_file" env:"LOG_FILE"`
		LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
		AppName   string `yaml:"app_name" env:"APP_NAME"`
		AddCaller bool   `yaml:"add_caller" env:"LOG_ADD_CALLER"`
	}

	// Logger wraps zap so components depend on this package only
	Logger struct {
		*zap.Logger
	}
)

var (
	global *Logger
	mu     sync.RWMutex
)

// New builds a logger that writes JSON to cfg.LogFile (when set) and
// human-readable lines to stdout.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			level,
		),
	}

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %q: %w", cfg.LogFile, err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(file),
			level,
		))
	}

	opts := []zap.Option{}
	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller())
	}

	base := zap.New(zapcore.NewTee(cores...), opts...)
	if cfg.AppName != "" {
		base = base.With(zap.String("app", cfg.AppName))
	}

	return &Logger{Logger: base}, nil
}

// Init sets the global logger
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	global = l
	mu.Unlock()

	return nil
}

// Get returns the global logger, a no-op one until Init succeeds
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()

	if global == nil {
		return &Logger{Logger: zap.NewNop()}
	}
	return global
}

// Sync flushes buffered entries of the global logger
func Sync() {
	if l := Get(); l != nil {
		_ = l.Sync()
	}
}

// Nop returns a logger that discards everything, for tests
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

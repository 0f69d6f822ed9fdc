// Package logger wraps zap with the process-wide logger used by every component.
package logger

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// Config describes where and how verbosely the service logs.
	Config struct {
		LogFile   string `yaml:"log_file" env:"LOG_FILE"`
		LogLevel  string `yaml:"log_level" env:"LOG_LEVEL"`
		AppName   string `yaml:"app_name" env:"APP_NAME"`
		AddCaller bool   `yaml:"add_caller" env:"LOG_ADD_CALLER"`
	}

	// Logger embeds *zap.Logger so components can call Info/Error/... directly.
	Logger struct {
		*zap.Logger
	}
)

var (
	global *Logger
	mu     sync.RWMutex
)

// Init builds the global logger. Output goes to stdout and, when LogFile is set,
// to that file as JSON.
func Init(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level),
	}

	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("error open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}

	opts := []zap.Option{}
	if cfg.AddCaller {
		opts = append(opts, zap.AddCaller())
	}

	zl := zap.New(zapcore.NewTee(cores...), opts...)
	if cfg.AppName != "" {
		zl = zl.With(zap.String("app", cfg.AppName))
	}

	mu.Lock()
	global = &Logger{Logger: zl}
	mu.Unlock()

	return nil
}

// Get returns the global logger, or a no-op logger when Init was never called.
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()

	if global == nil {
		return NewNop()
	}
	return global
}

// Sync flushes buffered entries of the global logger.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()

	if global != nil {
		_ = global.Logger.Sync()
	}
}

func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component))}
}

// Package logging provides per-category file logging for lucius.
// Logs are written under the configured directory with one file per
// category per day. When debug mode is off every logger is a no-op, so
// the TUI never competes with the render loop for stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one logging subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // startup, transport selection
	CategoryAPI     Category = "api"     // model endpoint calls
	CategoryTools   Category = "tools"   // RPC subprocess exchanges
	CategoryQueue   Category = "queue"   // broker submit/poll
	CategoryWorker  Category = "worker"  // background action worker
	CategorySession Category = "session" // transcript store
	CategoryUI      Category = "ui"      // TUI state transitions
)

var (
	mu      sync.RWMutex
	loggers = make(map[Category]*zap.SugaredLogger)
	nop     = zap.NewNop().Sugar()

	logsDir string
	enabled bool
	level   zapcore.Level
)

// Initialize sets up the logging directory. With debug=false it is a
// silent no-op and Get returns inert loggers.
func Initialize(dir string, debug bool, lvl string) error {
	mu.Lock()
	defer mu.Unlock()

	enabled = debug
	if !enabled {
		return nil
	}
	if dir == "" {
		return fmt.Errorf("logging directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logsDir = dir

	switch lvl {
	case "debug":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}
	return nil
}

// Get returns (or creates) the logger for a category. Safe to call from
// any goroutine; disabled categories return a no-op logger.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if !enabled {
		mu.RUnlock()
		return nop
	}
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	// One file per category per day keeps rotation trivial.
	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", path, err)
		return nop
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(file), level)
	l := zap.New(core).Sugar().Named(string(category))
	loggers[category] = l
	return l
}

// Sync flushes all open loggers. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	for _, l := range loggers {
		_ = l.Sync()
	}
}

// Convenience helpers for the common categories.

// Boot logs to the boot category.
func Boot(format string, args ...any) { Get(CategoryBoot).Infof(format, args...) }

// API logs to the api category.
func API(format string, args ...any) { Get(CategoryAPI).Infof(format, args...) }

// Tools logs to the tools category.
func Tools(format string, args ...any) { Get(CategoryTools).Infof(format, args...) }

// Queue logs to the queue category.
func Queue(format string, args ...any) { Get(CategoryQueue).Infof(format, args...) }

// Worker logs to the worker category.
func Worker(format string, args ...any) { Get(CategoryWorker).Infof(format, args...) }

// Session logs to the session category.
func Session(format string, args ...any) { Get(CategorySession).Infof(format, args...) }

// UI logs to the ui category.
func UI(format string, args ...any) { Get(CategoryUI).Infof(format, args...) }

// Package logging provides category-scoped structured logging for ruleomatic.
// All categories share one zap core; each category is a named child logger
// and can be switched off individually.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, flag and config resolution
	CategoryConfig    Category = "config"    // Config file load/save
	CategoryRules     Category = "rules"     // Rule discovery, parsing, shadowing
	CategoryKernel    Category = "kernel"    // Per-PID attribute syscalls and /proc reads
	CategoryProcess   Category = "process"   // Process snapshot refresh
	CategoryReconcile Category = "reconcile" // Verdict computation
	CategoryUI        Category = "ui"        // Interactive view
)

// Options configures the shared logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means warn.
	Level string
	// File redirects output to a file instead of stderr. Parent directories
	// are created on demand.
	File string
	// Discard drops everything. The interactive view uses this when no log
	// file is configured so nothing is written over the terminal it owns.
	Discard bool
	// JSON selects the JSON encoder instead of the console encoder.
	JSON bool
	// Categories disables individual categories when mapped to false.
	Categories map[string]bool
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
)

// Initialize builds the shared logger. It may be called more than once; the
// previous logger is synced and replaced.
func Initialize(opts Options) error {
	if opts.Discard {
		Set(zap.NewNop())
		return nil
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !opts.JSON {
		cfg.Encoding = "console"
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{opts.File}
		cfg.ErrorOutputPaths = []string{opts.File}
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	categories = opts.Categories
	mu.Unlock()
	Set(l)
	return nil
}

// Set replaces the shared logger. Tests use it with zap.NewNop or an
// observer core.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
	base = l
}

// ParseLevel maps a level name to a zap level. Empty means warn.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zapcore.WarnLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", s)
	}
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns the sugared logger for category. Disabled categories get a
// no-op logger.
func Get(category Category) *zap.SugaredLogger {
	if !IsCategoryEnabled(category) {
		return zap.NewNop().Sugar()
	}
	mu.RLock()
	defer mu.RUnlock()
	return base.Named(string(category)).Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debugw("operation completed", "op", t.op, "elapsed", elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warnw("operation slow", "op", t.op, "elapsed", elapsed, "threshold", threshold)
	} else {
		Get(t.category).Debugw("operation completed", "op", t.op, "elapsed", elapsed)
	}
	return elapsed
}

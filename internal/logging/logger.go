// Package logging provides categorized zap-backed logging for deskhand.
// Every subsystem logs through a named category so a single run can be
// filtered down to classification, ledger, or workflow activity. Logging is
// disabled (nop) until Initialize is called, which keeps tests quiet.
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

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, config, registry construction
	CategoryClassify Category = "classify" // Normalization and intent classification
	CategoryLLM      Category = "llm"      // LLM backend calls and fallbacks
	CategoryStore    Category = "store"    // Context store reads/writes
	CategorySession  Category = "session"  // Session state and persistence
	CategoryDispatch Category = "dispatch" // Registry dispatch
	CategoryLedger   Category = "ledger"   // Safety net / undo ledger
	CategoryWorkflow Category = "workflow" // Plan compilation, runs, triggers
)

var (
	mu   sync.RWMutex
	root *zap.Logger = zap.NewNop()
	subs             = make(map[Category]*zap.SugaredLogger)
)

// Initialize installs the process-wide logger. When logFile is empty the
// logger writes to stderr. debug selects the level.
func Initialize(logFile string, debug bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{logFile}
		cfg.ErrorOutputPaths = []string{logFile}
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	SetLogger(logger)
	Get(CategoryBoot).Infof("logging initialized (debug=%v file=%q)", debug, logFile)
	return nil
}

// SetLogger replaces the root logger. Tests inject zap.NewNop() or an
// observer core here.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
	subs = make(map[Category]*zap.SugaredLogger)
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if s, ok := subs[cat]; ok {
		mu.RUnlock()
		return s
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if s, ok := subs[cat]; ok {
		return s
	}
	s := root.Named(string(cat)).Sugar()
	subs[cat] = s
	return s
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Timer logs the duration of an operation at debug level when stopped.
type Timer struct {
	cat   Category
	op    string
	start time.Time
}

// StartTimer begins timing an operation for slow-path diagnostics.
func StartTimer(cat Category, op string) *Timer {
	return &Timer{cat: cat, op: op, start: time.Now()}
}

// Stop logs the elapsed time for the operation.
func (t *Timer) Stop() {
	Get(t.cat).Debugf("%s took %v", t.op, time.Since(t.start))
}

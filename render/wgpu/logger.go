package wgpu

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record; it's the default logger until a caller
// installs a real one with SetLogger.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h nopHandler) WithGroup(string) slog.Handler            { return h }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger installs the logger returned by Logger. Passing nil restores
// the no-op logger.
//
// The surface package's CanvasRenderer logs through it: Info when it
// configures a target, Debug when it resizes.
func SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = newNopLogger()
	}
	loggerPtr.Store(logger)
}

// Logger returns the currently installed logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// Package util provides low-level helpers shared by all other packages.
package util

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// Output formats accepted by NewLoggerTo.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Logger writes levelled messages through a zap core.  The verbosity
// gate is applied here, so the underlying core can stay at debug level.
type Logger struct {
	level LogLevel
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

// NewLogger returns a text Logger on stderr that prints messages at or
// below the given verbosity (0 = quiet, 1 = normal, 2 = verbose,
// 3 = debug).
func NewLogger(verbosity int) *Logger {
	return NewLoggerTo(os.Stderr, verbosity, FormatText)
}

// NewLoggerTo returns a Logger writing to w in the given format.  With
// FormatAuto the text encoder is used when w is a terminal and JSON
// otherwise.
func NewLoggerTo(w io.Writer, verbosity int, format string) *Logger {
	if format == FormatAuto {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatText
		}
	}

	var enc zapcore.Encoder
	if format == FormatJSON {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		// Timestamps only in debug mode.
		if verbosity < int(LogDebug) {
			ec.TimeKey = ""
		}
		ec.CallerKey = ""
		enc = zapcore.NewConsoleEncoder(ec)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zap.DebugLevel)
	return NewLoggerWithCore(verbosity, core)
}

// NewLoggerWithCore wraps an existing zap core.  Tests use this with
// zaptest/observer to assert on emitted entries.
func NewLoggerWithCore(verbosity int, core zapcore.Core) *Logger {
	base := zap.New(core)
	return &Logger{
		level: LogLevel(verbosity),
		base:  base,
		sugar: base.Sugar(),
	}
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() *Logger {
	return NewLoggerWithCore(int(LogQuiet), zapcore.NewNopCore())
}

// Named returns a child Logger whose entries carry the given name.
func (l *Logger) Named(name string) *Logger {
	base := l.base.Named(name)
	return &Logger{level: l.level, base: base, sugar: base.Sugar()}
}

// With returns a child Logger with structured fields attached.
func (l *Logger) With(fields ...zap.Field) *Logger {
	base := l.base.With(fields...)
	return &Logger{level: l.level, base: base, sugar: base.Sugar()}
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger { return l.base }

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.base.Sync() }

// Info prints when verbosity ≥ 1.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.sugar.Infof(format, args...)
	}
}

// Warn prints when verbosity ≥ 1.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogNormal {
		l.sugar.Warnf(format, args...)
	}
}

// Verbose prints when verbosity ≥ 2.
func (l *Logger) Verbose(format string, args ...interface{}) {
	if l.level >= LogVerbose {
		l.sugar.Debugf(format, args...)
	}
}

// Debug prints when verbosity ≥ 3.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogDebug {
		l.sugar.Debugf(format, args...)
	}
}

// Error always prints regardless of verbosity.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

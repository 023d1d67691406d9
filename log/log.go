// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log is a thin layer over the go-ethereum structured logger.
// Package level loggers created by WithContext resolve the root logger on every call,
// so SetDefault takes effect for loggers created before it.
package log

import (
	"log/slog"

	ethlog "github.com/ethereum/go-ethereum/log"
)

const (
	LvlTrace = ethlog.LevelTrace
	LvlDebug = ethlog.LevelDebug
	LvlInfo  = ethlog.LevelInfo
	LvlWarn  = ethlog.LevelWarn
	LvlError = ethlog.LevelError
	LvlCrit  = ethlog.LevelCrit
)

// Logger writes key/value pairs to a handler.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)
}

type contextLogger struct {
	ctx []any
}

func (l *contextLogger) logger() ethlog.Logger {
	return ethlog.Root().With(l.ctx...)
}

func (l *contextLogger) Trace(msg string, ctx ...any) { l.logger().Trace(msg, ctx...) }
func (l *contextLogger) Debug(msg string, ctx ...any) { l.logger().Debug(msg, ctx...) }
func (l *contextLogger) Info(msg string, ctx ...any)  { l.logger().Info(msg, ctx...) }
func (l *contextLogger) Warn(msg string, ctx ...any)  { l.logger().Warn(msg, ctx...) }
func (l *contextLogger) Error(msg string, ctx ...any) { l.logger().Error(msg, ctx...) }
func (l *contextLogger) Crit(msg string, ctx ...any)  { l.logger().Crit(msg, ctx...) }

// WithContext returns a logger which always carries the given key/value pairs.
func WithContext(ctx ...any) Logger {
	return &contextLogger{ctx: ctx}
}

// Root returns the root logger.
func Root() ethlog.Logger {
	return ethlog.Root()
}

// SetDefault replaces the root logger.
func SetDefault(l ethlog.Logger) {
	ethlog.SetDefault(l)
}

// NewLogger creates a root-capable logger over the handler.
func NewLogger(h slog.Handler) ethlog.Logger {
	return ethlog.NewLogger(h)
}

// FromVerbosity maps the legacy 0 (crit) to 5 (trace) verbosity scale to a level.
func FromVerbosity(verbosity int) slog.Level {
	return ethlog.FromLegacyLevel(verbosity)
}

package reactor

import (
	"io"
	"log/slog"

	"github.com/joeycumines/logiface"
	islog "github.com/joeycumines/logiface-slog"
)

// Logger is the structured logger type used throughout the runtime,
// fluent-built ("logger.Debug().Str(...).Log(...)"), never via
// fmt.Sprintf message construction.
type Logger = logiface.Logger[*islog.Event]

// NewLogger builds a Logger backed by a log/slog.Handler, via the
// logiface-slog adapter. Passing nil
// discards output, giving every Runtime an always-present logger.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	return logiface.New[*islog.Event](islog.NewLogger(handler))
}

// discardLogger is installed when Config.Logger is left nil.
func discardLogger() *Logger {
	return NewLogger(nil)
}

package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the application logger.
// It writes text to Stderr so stdout stays free for the REPL and MCP stdio.
func New(level slog.Level) *slog.Logger {
	return NewWriter(os.Stderr, level, false)
}

// NewJSON creates a logger that emits JSON lines on Stderr, for the server.
func NewJSON(level slog.Level) *slog.Logger {
	return NewWriter(os.Stderr, level, true)
}

// NewWriter creates a logger on w. Both formats rename "error" keys to "err".
func NewWriter(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

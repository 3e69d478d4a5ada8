package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the backend logger: JSON on stdout at the provided level. An
// invalid level falls back to info.
func New(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)}))
}

// NewWithWriter creates the terminal client's logger. Lines are text, since
// a person reads them next to command output, and go to w (stderr) so they
// never mix with tables printed on stdout.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(handler)
}

// Component tags every record of logger with the emitting component.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger.With(slog.String("component", name))
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

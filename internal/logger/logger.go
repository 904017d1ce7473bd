package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a JSON-line logger writing to stdout.
// Timestamps are rendered in loc under the "ts" key.
func New(level string, loc *time.Location) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, loc)
}

// NewWithWriter is New with an explicit destination, used by tests.
func NewWithWriter(w io.Writer, level string, loc *time.Location) zerolog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).
		Level(lvl).
		Hook(tsHook{loc: loc})
}

type tsHook struct {
	loc *time.Location
}

func (h tsHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str("ts", time.Now().In(h.loc).Format(time.RFC3339Nano))
}

package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"task-tracker/backend/internal/config"

	"github.com/rs/zerolog"
)

// New builds the root logger. Pretty output goes through a console writer;
// otherwise lines are JSON. An unknown level falls back to info.
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	zerolog.TimestampFieldName = "timestamp"

	w := out
	if cfg.Pretty {
		consoleWriter := zerolog.NewConsoleWriter()
		consoleWriter.TimeFormat = time.DateTime
		consoleWriter.Out = out
		w = consoleWriter
	}

	return zerolog.New(w).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
}

func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

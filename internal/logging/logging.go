package logging

import (
	"io"
	"os"
	"time"

	"github.com/goliatone/go-rest-scaffold/config"
	"github.com/rs/zerolog"
)

const permission = 0664

// Logger bundles the process logger with the file it writes to, if any.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New builds a logger from cfg. Output goes to out unless cfg.Path is set,
// in which case the file is opened for appending.
func New(cfg config.LogConfig, out io.Writer) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	if out == nil {
		out = os.Stdout
	}

	l := &Logger{}
	if cfg.Path != "" {
		file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		l.file = file
		out = zerolog.SyncWriter(file)
	}

	if cfg.Format == config.FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}
	}

	l.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return l, nil
}

// Close releases the log file. It is a no-op for stream output.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

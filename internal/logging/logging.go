package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Build collects logger options before Make is called.
type Build struct {
	writer  io.Writer
	path    string
	level   string
	console bool
}

// Logger is a configured zerolog logger plus the file it writes to, if any.
type Logger struct {
	zerolog.Logger
	File *os.File
}

// New starts a logger build writing to stderr at info level.
func New() *Build {
	return &Build{writer: os.Stderr, level: "info"}
}

// FromPath appends log output to the file at path instead of the writer.
func (b *Build) FromPath(path string) *Build {
	b.path = path
	return b
}

// FromWriter sets the output writer.
func (b *Build) FromWriter(w io.Writer) *Build {
	b.writer = w
	return b
}

// Level sets the minimum level by name (trace, debug, info, warn, error).
func (b *Build) Level(level string) *Build {
	b.level = level
	return b
}

// Console switches to human-readable output.
func (b *Build) Console(on bool) *Build {
	b.console = on
	return b
}

// Make opens the log file if requested and builds the logger.
func (b *Build) Make() (*Logger, error) {
	out := &Logger{}
	w := b.writer
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		out.File = f
		w = zerolog.SyncWriter(f)
	} else if b.console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	out.Logger = zerolog.New(w).Level(ParseLevel(b.level)).With().Timestamp().Logger()
	return out, nil
}

// Close closes the log file, if one was opened.
func (l *Logger) Close() error {
	if l.File == nil {
		return nil
	}
	return l.File.Close()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

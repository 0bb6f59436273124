package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"hreq/internal/config"
	"hreq/internal/errdef"
)

const (
	WriterConsole = "console"
	WriterFile    = "file"
)

// Logger is the configured application logger and the sinks behind it.
type Logger struct {
	zerolog.Logger
	closers []io.Closer
}

// Close flushes and closes file sinks.
func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// Init builds the logger from cfg. It is called once at startup, before any
// component is created. With interactive set the console writer is skipped
// so log lines never land on the terminal UI.
func Init(cfg config.Log, interactive bool) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var (
		writers []io.Writer
		closers []io.Closer
	)
	for _, name := range cfg.Writers {
		switch strings.TrimSpace(name) {
		case WriterConsole:
			if interactive {
				continue
			}
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		case WriterFile:
			lj, err := fileWriter(cfg)
			if err != nil {
				return nil, err
			}
			writers = append(writers, lj)
			closers = append(closers, lj)
		default:
			return nil, errdef.New(errdef.CodeConfig, "unknown log writer %q", name)
		}
	}

	if len(writers) == 0 {
		return &Logger{Logger: zerolog.Nop()}, nil
	}

	var out io.Writer = writers[0]
	if len(writers) > 1 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Str("app", "hreq").Logger()
	return &Logger{Logger: zl, closers: closers}, nil
}

func fileWriter(cfg config.Log) (*lumberjack.Logger, error) {
	if strings.TrimSpace(cfg.File) == "" {
		return nil, errdef.New(errdef.CodeConfig, "log.file is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "create log directory")
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   false,
	}, nil
}

// ParseLevel accepts zerolog level names; blank means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, errdef.Wrap(errdef.CodeConfig, err, "log level")
	}
	return level, nil
}

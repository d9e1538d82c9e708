package goWarden

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps the zerolog logger built from a LogConfig together with the
// rotating file behind it, if any.
type Logger struct {
	zerolog.Logger
	file *lumberjack.Logger
}

// Close flushes and closes the rotating log file. It is a no-op for loggers
// without a file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// NewLogger builds a logger from cfg writing to w. When cfg.File is set,
// output also goes to a lumberjack-rotated file. A nil w with no file
// discards console output.
func NewLogger(cfg LogConfig, w io.Writer) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var writers []io.Writer
	var file *lumberjack.Logger

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		writers = append(writers, file)
	}

	if w != nil {
		if strings.EqualFold(cfg.Format, "console") {
			writers = append(writers, zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
		} else {
			writers = append(writers, w)
		}
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Str("module", "warden").Logger()
	return &Logger{Logger: zl, file: file}, nil
}

func parseLevel(raw string) (zerolog.Level, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(raw))
}

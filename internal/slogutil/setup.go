package slogutil

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/javi11/parchive/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a configured level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logging is a configured logger and the resources behind it.
type Logging struct {
	Logger *slog.Logger
	Level  *DynamicLeveler

	file *lumberjack.Logger
}

// Close flushes and closes the rotated log file, if any.
func (l *Logging) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// SetupLogRotation configures slog with log rotation using lumberjack.
// Records go to console, and also to logConfig.File when it is set.
func SetupLogRotation(logConfig config.LogConfig, console io.Writer) *Logging {
	if console == nil {
		console = os.Stderr
	}

	l := &Logging{Level: NewDynamicLeveler(ParseLevel(logConfig.Level))}

	writer := console
	if logConfig.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   logConfig.File,
			MaxSize:    logConfig.MaxSize,    // MB
			MaxBackups: logConfig.MaxBackups, // number of old files
			MaxAge:     logConfig.MaxAge,     // days
			Compress:   logConfig.Compress,
		}
		writer = io.MultiWriter(console, l.file)
	}

	opts := &slog.HandlerOptions{Level: l.Level}

	var base slog.Handler
	if logConfig.Format == "json" {
		base = slog.NewJSONHandler(writer, opts)
	} else {
		base = slog.NewTextHandler(writer, opts)
	}

	// Wrap handler to support context data extraction
	l.Logger = slog.New(WrapHandler(base))

	return l
}

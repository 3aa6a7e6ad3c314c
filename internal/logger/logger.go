package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/lumberjack"
)

const (
	LoggerMaxSize    = 100
	LoggerMaxBackups = 7
	LoggerMaxAge     = 0
	LoggerCompress   = true
)

type LogConfig struct {
	LogLevel string
	LogPath  string
}

func GetLoggerLevel(loggerLevel string) slog.Level {
	switch strings.ToLower(loggerLevel) {
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

// New builds a JSON logger. With an empty LogPath it writes to stderr,
// otherwise to a rotating assist.log inside LogPath.
func New(c LogConfig) *slog.Logger {
	var w io.Writer = os.Stderr
	if c.LogPath != "" {
		w = &lumberjack.Logger{
			Filename:   filepath.Join(c.LogPath, "assist.log"),
			MaxSize:    LoggerMaxSize, // MB
			MaxBackups: LoggerMaxBackups,
			MaxAge:     LoggerMaxAge,
			Compress:   LoggerCompress,
		}
	}
	return NewWithWriter(w, c.LogLevel)
}

func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: GetLoggerLevel(level),
	}))
}

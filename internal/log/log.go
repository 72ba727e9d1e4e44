package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     hclog.Logger
	loggerOnce sync.Once
)

// initLogger initializes the global logger to write to stderr with
// microsecond timestamps. Default minimum level is INFO.
func initLogger() {
	loggerOnce.Do(func() {
		logger = newLogger(os.Stderr, hclog.Info)
	})
}

func newLogger(w io.Writer, lvl hclog.Level) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "journeycal",
		Level:      lvl,
		Output:     w,
		TimeFormat: "2006-01-02T15:04:05.000000Z07:00",
	})
}

// SetOutput redirects the global logger. Used by tests and by main when a
// log file is configured.
func SetOutput(w io.Writer) {
	initLogger()
	logger = newLogger(w, currentLevel())
}

func SetLevel(l Level) {
	initLogger()
	logger.SetLevel(toHCLevel(l))
}

// ParseLevel maps a config string ("debug", "info", "error") to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Info(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logger.Error(msg, extended...)
}

func currentLevel() hclog.Level {
	switch {
	case logger.IsDebug():
		return hclog.Debug
	case logger.IsInfo():
		return hclog.Info
	default:
		return hclog.Error
	}
}

func toHCLevel(l Level) hclog.Level {
	switch l {
	case LevelDebug:
		return hclog.Debug
	case LevelError:
		return hclog.Error
	default:
		return hclog.Info
	}
}

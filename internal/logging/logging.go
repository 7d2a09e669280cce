// Package logging centralizes slog configuration for the thermal event
// store: a human-readable console logger, an optional rotating JSON file
// logger, and per-service child loggers.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fusionvision/thermal-events-go/internal/conf"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Custom levels on both sides of the standard slog range.
const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// levelNames maps the custom levels to their display names.
var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

var (
	levelVar = new(slog.LevelVar)

	consoleLogger *slog.Logger
	fileLogger    *slog.Logger
	fileCloser    func() error
)

// replaceLevelNames rewrites the level attribute so TRACE and FATAL records
// carry their custom names instead of DEBUG-4 / ERROR+4.
func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		if label, ok := levelNames[level]; ok {
			a.Value = slog.StringValue(label)
		} else {
			a.Value = slog.StringValue(level.String())
		}
	}
	return a
}

// ParseLevel converts a configuration level string to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Init configures the package loggers from the log configuration: a text
// handler on stderr always, plus a rotating JSON file handler when a log
// file is configured. The console logger becomes the slog default.
func Init(cfg *conf.LogConfig) error {
	if cfg != nil {
		level, err := ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		levelVar.Set(level)
	}

	consoleLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       levelVar,
		ReplaceAttr: replaceLevelNames,
	}))

	if cfg != nil && cfg.Enabled && cfg.Path != "" {
		logger, closer, err := NewFileLogger(cfg.Path, "thermal-events", levelVar)
		if err != nil {
			return err
		}
		fileLogger = logger
		fileCloser = closer
	}

	slog.SetDefault(consoleLogger)
	return nil
}

// Shutdown closes the rotating file writer, if one was opened.
func Shutdown() error {
	if fileCloser == nil {
		return nil
	}
	err := fileCloser()
	fileCloser = nil
	return err
}

// SetLevel changes the minimum level of every handler created by this
// package, including file loggers already handed out.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// Level returns the current minimum logging level.
func Level() slog.Level {
	return levelVar.Level()
}

// ForService returns a child logger carrying a 'service' attribute. The
// rotating file logger is preferred when configured so services share one
// structured log; otherwise records go to the console handler.
func ForService(serviceName string) *slog.Logger {
	if fileLogger != nil {
		return fileLogger.With("service", serviceName)
	}
	if consoleLogger != nil {
		return consoleLogger.With("service", serviceName)
	}
	return slog.Default().With("service", serviceName)
}

// Debug logs a debug message using the default slog logger.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message using the default slog logger.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning message using the default slog logger.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error message using the default slog logger.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Trace logs a message at the custom trace level.
func Trace(msg string, args ...any) {
	slog.Log(context.TODO(), LevelTrace, msg, args...)
}

// Fatal logs a message at the custom fatal level and exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}

// NewFileLogger creates a slog.Logger writing JSON records to filePath
// through a lumberjack rotating writer. Rotation parameters come from the
// loaded configuration; sensible defaults apply when none is loaded. The
// returned closer releases the writer.
func NewFileLogger(filePath, serviceName string, level slog.Leveler) (*slog.Logger, func() error, error) {
	// lumberjack does not create directories
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	logWriter := &lumberjack.Logger{
		Filename: filePath,
		Compress: false,
	}

	maxSizeMB := 100
	maxBackups := 3
	maxAge := 28 // days

	var logConf conf.LogConfig
	if settings := conf.GetSettings(); settings != nil {
		logConf = settings.Log
	}

	if configMaxSizeMB := int(logConf.MaxSize / (1024 * 1024)); configMaxSizeMB > 0 {
		maxSizeMB = configMaxSizeMB
	}

	switch logConf.Rotation {
	case conf.RotationDaily:
		maxAge = 1
		maxBackups = 30
	case conf.RotationWeekly:
		maxAge = 7
		maxBackups = 4
	case conf.RotationSize, "":
		// size-based rotation keeps the defaults
	default:
		slog.Warn("Unknown log rotation type in config, using size-based defaults", "configuredType", logConf.Rotation)
	}

	logWriter.MaxSize = maxSizeMB
	logWriter.MaxBackups = maxBackups
	logWriter.MaxAge = maxAge

	fileHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})

	logger := slog.New(fileHandler).With("service", serviceName)

	return logger, logWriter.Close, nil
}

// internal/utils/logging.go
package utils

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultLogFileName = "app.log"
	LogFileMode        = 0644
)

var Logger = zap.NewNop()

// Init configures zap to write to both console and a log file.
// This should be called once at application startup, after configuration is loaded.
// An empty logFile falls back to DefaultLogFileName; an unknown level falls back to info.
func Init(logFile, logLevel string) error {
	if logFile == "" {
		logFile = DefaultLogFileName
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, LogFileMode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", logFile, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)

	level := ParseLevel(logLevel)
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)
	fileCore := zapcore.NewCore(fileEncoder, zapcore.AddSync(file), level)

	Logger = zap.New(zapcore.NewTee(consoleCore, fileCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	Logger.Info("logging initialized",
		zap.String("log_level", level.String()),
		zap.String("log_file", logFile))

	return nil
}

// ParseLevel maps a LOG_LEVEL value onto a zap level (default: info).
func ParseLevel(value string) zapcore.Level {
	if value == "" {
		return zapcore.InfoLevel
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		fmt.Fprintf(os.Stderr, "unknown LOG_LEVEL '%s', defaulting to 'info'\n", value)
		return zapcore.InfoLevel
	}
	return level
}

// Sync flushes any buffered log entries.
func Sync() error {
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}

// WithComponent returns a logger pre-bound with a `component` field so callers
// don't have to repeat the same field across messages in a component.
func WithComponent(component string) *zap.Logger {
	if Logger == nil {
		return nil
	}
	return Logger.With(zap.String(FieldComponent, component))
}

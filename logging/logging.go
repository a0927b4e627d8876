// Package logging builds the structured zap loggers the bridge and its
// tools use. Output tees to console and a rotated log file; prompts and
// credentials are redacted before they reach either sink.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures a logger built by New. The zero value logs at info
// level to console only.
type Options struct {
	// Level is the minimum level as a string: debug, info, warn, error,
	// fatal. Empty means info.
	Level string

	// FilePath, when set, adds a JSON file sink with rotation.
	FilePath string

	// Development switches the console sink to a colored human-readable
	// format and lowers the default level to debug.
	Development bool

	// Rotation overrides the file rotation policy. Zero fields take the
	// defaults in this package.
	Rotation FileRotation
}

// New builds a *zap.Logger from opts. The caller owns the logger and
// should Sync it before exit.
func New(opts Options) (*zap.Logger, error) {
	defaultLevel := zapcore.InfoLevel
	if opts.Development {
		defaultLevel = zapcore.DebugLevel
	}
	level := ParseLevel(opts.Level, defaultLevel)

	core, err := buildCore(level, opts)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return zap.New(core, zap.AddCaller()), nil
}

// buildCore tees the console core with an optional file core.
func buildCore(level zapcore.Level, opts Options) (zapcore.Core, error) {
	consoleCore := newConsoleCore(level, opts.Development)
	if opts.FilePath == "" {
		return consoleCore, nil
	}

	fileWriter := newFileWriter(opts.FilePath, opts.Rotation)
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(newEncoderConfig()),
		fileWriter,
		level,
	)
	return zapcore.NewTee(consoleCore, fileCore), nil
}

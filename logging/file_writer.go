package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation policy for the file sink.
const (
	DefaultMaxSizeMB  = 50
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
)

// FileRotation configures log file rotation. Zero fields take the package
// defaults; Compress cannot be disabled through the zero value, so it is
// inverted as NoCompress.
type FileRotation struct {
	// MaxSizeMB rotates the file once it exceeds this size.
	MaxSizeMB int

	// MaxBackups is how many rotated files to retain.
	MaxBackups int

	// MaxAgeDays deletes rotated files older than this.
	MaxAgeDays int

	// NoCompress disables gzip compression of rotated files.
	NoCompress bool
}

// newFileWriter wraps a lumberjack rotating logger as a zap sink.
func newFileWriter(path string, rot FileRotation) zapcore.WriteSyncer {
	if rot.MaxSizeMB <= 0 {
		rot.MaxSizeMB = DefaultMaxSizeMB
	}
	if rot.MaxBackups <= 0 {
		rot.MaxBackups = DefaultMaxBackups
	}
	if rot.MaxAgeDays <= 0 {
		rot.MaxAgeDays = DefaultMaxAgeDays
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
		Compress:   !rot.NoCompress,
	})
}

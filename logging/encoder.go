package logging

import (
	"os"
	"time"

	"go.uber.org/zap/zapcore"
)

// JSON field names shared by every sink, so log processors see one schema.
const (
	FieldTimestamp  = "timestamp"
	FieldLevel      = "level"
	FieldCaller     = "caller"
	FieldMessage    = "message"
	FieldStacktrace = "stacktrace"
)

// newEncoderConfig returns the JSON encoder configuration: ISO8601
// timestamps, lowercase levels, short caller paths.
func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       FieldTimestamp,
		LevelKey:      FieldLevel,
		CallerKey:     FieldCaller,
		MessageKey:    FieldMessage,
		StacktraceKey: FieldStacktrace,
		LineEnding:    zapcore.DefaultLineEnding,

		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// newConsoleCore builds the console sink. Development mode gets colored
// levels and compact timestamps; production stays JSON so console and file
// carry the same schema.
func newConsoleCore(level zapcore.Level, development bool) zapcore.Core {
	var encoder zapcore.Encoder
	if development {
		cfg := newEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("15:04:05.000"))
		}
		cfg.EncodeDuration = zapcore.StringDurationEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	} else {
		encoder = zapcore.NewJSONEncoder(newEncoderConfig())
	}
	return zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
}

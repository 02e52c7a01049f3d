package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings of file loggers.
const (
	maxLogFileMB      = 100
	maxLogFileBackups = 3
)

// NewFileLogger returns a logger that writes to stdout like NewLogger and also writes JSON lines
// to a size-rotated file at path. The returned closer closes the file.
func NewFileLogger(name, path string, level Level) (Logger, io.Closer) {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogFileMB,
		MaxBackups: maxLogFileBackups,
		Compress:   true,
	}
	atomicLevel := zap.NewAtomicLevelAt(level.AsZap())

	encoderConfig := NewZapLoggerConfig().EncoderConfig
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), atomicLevel)

	return newImpl(name, atomicLevel, zapcore.NewTee(newStdoutCore(atomicLevel), fileCore)), file
}

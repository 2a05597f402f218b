package telemetry

import (
	"os"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls how the process logger is built.
type Options struct {
	Service string
	Env     string
	// LogFile, when set, adds a rotated JSON file sink next to stdout.
	LogFile string
}

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(New(Options{}))
}

// New builds a zap logger writing JSON lines to stdout and optionally to a rotated file.
func New(opts Options) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	level := zap.InfoLevel
	if opts.Env == "dev" || opts.Env == "local" {
		level = zap.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stdout), level),
	}
	if opts.LogFile != "" {
		fileSyncer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fileSyncer, level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel))
	if opts.Service != "" {
		logger = logger.With(zap.String("service", opts.Service))
	}
	return logger
}

// SetLogger replaces the process logger and returns a func restoring the previous one.
func SetLogger(l *zap.Logger) func() {
	if l == nil {
		l = zap.NewNop()
	}
	prev := current.Swap(l)
	return func() { current.Store(prev) }
}

// Logger returns the process logger.
func Logger() *zap.Logger {
	return current.Load()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = current.Load().Sync()
}

// Debug writes a debug-level log line with the given fields.
func Debug(msg string, fields map[string]any) {
	current.Load().Debug(msg, toZap(fields)...)
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	current.Load().Info(msg, toZap(fields)...)
}

// Warn writes a warn-level log line with the given fields.
func Warn(msg string, fields map[string]any) {
	current.Load().Warn(msg, toZap(fields)...)
}

// Error writes an error-level log line with the given fields.
func Error(msg string, fields map[string]any) {
	current.Load().Error(msg, toZap(fields)...)
}

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

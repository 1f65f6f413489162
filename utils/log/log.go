package log

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
	FATAL
)

// ParseLevel maps a config value to a Level. Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "fatal":
		return FATAL
	case "error":
		return ERROR
	case "warning", "warn":
		return WARNING
	case "debug":
		return DEBUG
	default:
		return INFO
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the leveled logger handed to every component at construction.
type Logger struct {
	s     *zap.SugaredLogger
	level zap.AtomicLevel
}

// New builds a production zap logger writing to outputPaths (stderr when empty).
func New(level Level, outputPaths ...string) (*Logger, error) {
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.OutputPaths = outputPaths
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{s: z.Sugar(), level: cfg.Level}, nil
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

// Named adds a sub-scope to the logger name, e.g. "replication.connector".
func (l *Logger) Named(name string) *Logger {
	return &Logger{s: l.s.Named(name), level: l.level}
}

// With attaches key/value context to every subsequent entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{s: l.s.With(keysAndValues...), level: l.level}
}

func (l *Logger) SetLevel(level Level) {
	l.level.SetLevel(level.zapLevel())
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.s.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.s.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.s.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.s.Errorf(format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.s.Fatalf(format, args...)
}

func (l *Logger) Sync() error {
	return l.s.Sync()
}

// std backs the package-level functions used by the command layer.
var std *Logger

func init() {
	logger, err := New(INFO)
	if err != nil {
		panic(err)
	}
	std = logger
}

// Default returns the process-wide logger configured by SetLevel.
func Default() *Logger {
	return std
}

func SetLevel(level Level) {
	std.SetLevel(level)
}

func Debug(format string, args ...interface{}) {
	std.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	std.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	std.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	std.Error(format, args...)
}

func Fatal(format string, args ...interface{}) {
	std.Fatal(format, args...)
}

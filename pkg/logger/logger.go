// Package logger provides a zap-based application logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a Logger writes.
type Level int8

const (
	LevelDebug Level = iota - 1
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a textual level such as "debug" or "WARN" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// TraceIDFn extracts a trace id from a context. An empty result means no trace.
type TraceIDFn func(ctx context.Context) string

// Logger writes structured JSON records tagged with the service name and,
// when available, the trace id of the request.
type Logger struct {
	zap       *zap.SugaredLogger
	traceIDFn TraceIDFn
}

// New builds a Logger writing JSON to w.
func New(w io.Writer, level Level, service string, traceIDFn TraceIDFn) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zapcore.Level(level),
	)
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).With(zap.String("service", service))
	return &Logger{zap: z.Sugar(), traceIDFn: traceIDFn}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop().Sugar()}
}

// Zap exposes the underlying zap logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger {
	return l.zap.Desugar()
}

func (l *Logger) Debug(ctx context.Context, msg string, kv ...any) {
	l.zap.Debugw(msg, l.withTrace(ctx, kv)...)
}

func (l *Logger) Info(ctx context.Context, msg string, kv ...any) {
	l.zap.Infow(msg, l.withTrace(ctx, kv)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kv ...any) {
	l.zap.Warnw(msg, l.withTrace(ctx, kv)...)
}

func (l *Logger) Error(ctx context.Context, msg string, kv ...any) {
	l.zap.Errorw(msg, l.withTrace(ctx, kv)...)
}

// Sync flushes buffered records.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

func (l *Logger) withTrace(ctx context.Context, kv []any) []any {
	if l.traceIDFn == nil || ctx == nil {
		return kv
	}
	if id := l.traceIDFn(ctx); id != "" {
		return append(kv, "trace_id", id)
	}
	return kv
}

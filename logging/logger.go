// Package logging 日志接口，zap 实现见 zap.go
package logging

import (
	"context"
	"sync/atomic"
	"time"
)

// Logger 所有方法都接收 ctx，请求 ID 从 ctx 中取出附加到输出
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// WithFields 返回带固定字段的子 Logger
	WithFields(fields ...Field) Logger
}

// Field 键值对
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field                 { return Field{key, value} }
func Int(key string, value int) Field                { return Field{key, value} }
func Int64(key string, value int64) Field            { return Field{key, value} }
func Uint64(key string, value uint64) Field          { return Field{key, value} }
func Float64(key string, value float64) Field        { return Field{key, value} }
func Bool(key string, value bool) Field              { return Field{key, value} }
func Duration(key string, value time.Duration) Field { return Field{key, value} }

// Error 固定使用 "error" 作为键
func Error(err error) Field { return Field{"error", err} }

// NoopLogger 丢弃所有输出
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (*NoopLogger) Debug(context.Context, string, ...Field) {}
func (*NoopLogger) Info(context.Context, string, ...Field)  {}
func (*NoopLogger) Warn(context.Context, string, ...Field)  {}
func (*NoopLogger) Error(context.Context, string, ...Field) {}
func (l *NoopLogger) WithFields(...Field) Logger            { return l }

type holder struct{ Logger }

var global atomic.Pointer[holder]

func init() {
	global.Store(&holder{NewNoopLogger()})
}

// SetLogger 替换进程级 Logger，nil 恢复为 NoopLogger
func SetLogger(l Logger) {
	if l == nil {
		l = NewNoopLogger()
	}
	global.Store(&holder{l})
}

// GetLogger 未设置时返回 NoopLogger
func GetLogger() Logger {
	return global.Load().Logger
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom ctx 为 nil 或未设置时返回空串
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

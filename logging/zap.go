package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger 基于 zap 的 Logger 实现
type ZapLogger struct {
	l *zap.Logger
}

// NewZapLogger 按级别创建 zap Logger；development 为 true 时使用开发配置（控制台格式）
func NewZapLogger(level string, development bool) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{l: l}, nil
}

// NewZapLoggerFrom 包装已有的 zap.Logger
func NewZapLoggerFrom(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{l: l}
}

func (z *ZapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	z.l.Debug(msg, toZapFields(ctx, fields)...)
}

func (z *ZapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	z.l.Info(msg, toZapFields(ctx, fields)...)
}

func (z *ZapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	z.l.Warn(msg, toZapFields(ctx, fields)...)
}

func (z *ZapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	z.l.Error(msg, toZapFields(ctx, fields)...)
}

func (z *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{l: z.l.With(toZapFields(nil, fields)...)}
}

// Sync 刷新缓冲
func (z *ZapLogger) Sync() error {
	return z.l.Sync()
}

// Zap 返回底层 zap.Logger
func (z *ZapLogger) Zap() *zap.Logger {
	return z.l
}

func toZapFields(ctx context.Context, fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	if id := RequestIDFrom(ctx); id != "" {
		out = append(out, zap.String("request_id", id))
	}
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

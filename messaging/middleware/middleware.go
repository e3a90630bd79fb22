// Package middleware 消息发布中间件
package middleware

import (
	"context"
	"time"

	"natours/logging"
	"natours/messaging"
)

// KeyRequestID 元数据中的请求 ID
const KeyRequestID = "request_id"

// RequestID 把上下文中的请求 ID 写入消息元数据，已有时保留
type RequestID struct{}

// NewRequestID 创建中间件
func NewRequestID() *RequestID { return &RequestID{} }

func (RequestID) Name() string { return "request_id" }

func (RequestID) Handle(ctx context.Context, m *messaging.Message, next messaging.HandlerFunc) error {
	if m.Meta(KeyRequestID) == "" {
		if id := logging.RequestIDFrom(ctx); id != "" {
			m.SetMeta(KeyRequestID, id)
		}
	}
	return next(ctx, m)
}

// Context 消费侧：把消息元数据中的请求 ID 放回上下文
func Context(ctx context.Context, m *messaging.Message) context.Context {
	if id := m.Meta(KeyRequestID); id != "" {
		return logging.WithRequestID(ctx, id)
	}
	return ctx
}

// Logging 记录发布结果
type Logging struct {
	logger logging.Logger
}

// NewLogging 创建中间件
func NewLogging(l logging.Logger) *Logging {
	if l == nil {
		l = logging.GetLogger()
	}
	return &Logging{logger: l}
}

func (l *Logging) Name() string { return "logging" }

func (l *Logging) Handle(ctx context.Context, m *messaging.Message, next messaging.HandlerFunc) error {
	start := time.Now()
	err := next(ctx, m)
	fields := []logging.Field{
		logging.String("message_type", m.Type),
		logging.String("message_id", m.ID),
		logging.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		l.logger.Warn(ctx, "publish failed", append(fields, logging.Error(err))...)
		return err
	}
	l.logger.Debug(ctx, "message published", fields...)
	return nil
}

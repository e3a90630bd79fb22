package messaging

import (
	"context"
	"fmt"
	"sync"
)

// HandlerFunc 中间件链中的下一步
type HandlerFunc func(ctx context.Context, message *Message) error

// IMiddleware 发布侧中间件
type IMiddleware interface {
	Handle(ctx context.Context, message *Message, next HandlerFunc) error
	Name() string
}

// Bus 在 Transport 之上执行发布中间件
type Bus struct {
	transport   Transport
	mu          sync.RWMutex
	middlewares []IMiddleware
}

// NewBus 创建消息总线
func NewBus(transport Transport) *Bus {
	return &Bus{transport: transport}
}

// Use 追加中间件，先注册的先执行
func (b *Bus) Use(m IMiddleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middlewares = append(b.middlewares, m)
}

// Transport 底层传输
func (b *Bus) Transport() Transport { return b.transport }

// Subscribe 订阅
func (b *Bus) Subscribe(messageType string, h IMessageHandler) error {
	return b.transport.Subscribe(messageType, h)
}

// Unsubscribe 取消订阅
func (b *Bus) Unsubscribe(messageType string, h IMessageHandler) error {
	return b.transport.Unsubscribe(messageType, h)
}

// Publish 经过中间件后发布
func (b *Bus) Publish(ctx context.Context, m *Message) error {
	return b.chain(func(ctx context.Context, m *Message) error {
		return b.transport.Publish(ctx, m)
	})(ctx, m)
}

// PublishAll 每条消息都经过中间件，最后一次性交给传输层
func (b *Bus) PublishAll(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}
	batch := make([]*Message, 0, len(messages))
	collect := b.chain(func(_ context.Context, m *Message) error {
		batch = append(batch, m)
		return nil
	})
	for _, m := range messages {
		if err := collect(ctx, m); err != nil {
			return fmt.Errorf("publish %s: %w", m.ID, err)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return b.transport.PublishAll(ctx, batch)
}

func (b *Bus) chain(final HandlerFunc) HandlerFunc {
	b.mu.RLock()
	mws := append([]IMiddleware(nil), b.middlewares...)
	b.mu.RUnlock()

	next := final
	for i := len(mws) - 1; i >= 0; i-- {
		mw, inner := mws[i], next
		next = func(ctx context.Context, m *Message) error {
			return mw.Handle(ctx, m, inner)
		}
	}
	return next
}

package messaging

import (
	"context"
	"sort"
	"sync"
)

// Wildcard 订阅全部消息类型
const Wildcard = "*"

// IMessageHandler 消息处理器
type IMessageHandler interface {
	Handle(ctx context.Context, message *Message) error

	// Type 处理器名称，用于日志
	Type() string
}

type funcHandler struct {
	name string
	fn   func(ctx context.Context, message *Message) error
}

func (h *funcHandler) Handle(ctx context.Context, m *Message) error { return h.fn(ctx, m) }
func (h *funcHandler) Type() string                                 { return h.name }

// NewHandler 用函数构造处理器，返回值可用于 Unsubscribe
func NewHandler(name string, fn func(ctx context.Context, message *Message) error) IMessageHandler {
	return &funcHandler{name: name, fn: fn}
}

// Registry 按消息类型登记处理器，各传输实现共用
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]IMessageHandler
}

// NewRegistry 创建登记表
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]IMessageHandler)}
}

// Add 登记处理器，返回该类型是否为首次登记
func (r *Registry) Add(messageType string, h IMessageHandler) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	first := len(r.handlers[messageType]) == 0
	r.handlers[messageType] = append(r.handlers[messageType], h)
	return first
}

// Remove 移除处理器，返回是否找到以及该类型是否已无处理器
func (r *Registry) Remove(messageType string, h IMessageHandler) (found, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hs := r.handlers[messageType]
	for i, cur := range hs {
		if cur == h {
			hs = append(hs[:i:i], hs[i+1:]...)
			found = true
			break
		}
	}
	if len(hs) == 0 {
		delete(r.handlers, messageType)
		return found, true
	}
	r.handlers[messageType] = hs
	return found, false
}

// Handlers 精确匹配的处理器在前，通配符处理器在后
func (r *Registry) Handlers(messageType string) []IMessageHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exact := r.handlers[messageType]
	var wildcard []IMessageHandler
	if messageType != Wildcard {
		wildcard = r.handlers[Wildcard]
	}
	out := make([]IMessageHandler, 0, len(exact)+len(wildcard))
	out = append(out, exact...)
	return append(out, wildcard...)
}

// Types 已登记的消息类型，按字典序
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Count 处理器总数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, hs := range r.handlers {
		n += len(hs)
	}
	return n
}

// Dispatch 依次调用处理器，出错时回调 onError，不中断后续处理器
func (r *Registry) Dispatch(ctx context.Context, m *Message, onError func(handler string, err error)) {
	for _, h := range r.Handlers(m.Type) {
		if err := h.Handle(ctx, m); err != nil && onError != nil {
			onError(h.Type(), err)
		}
	}
}

// DispatchKey 只调用登记在 key 下的处理器，key 为 Wildcard 时只调用通配符处理器。
// 每个订阅键各自收一份消息的传输用它避免重复处理
func (r *Registry) DispatchKey(ctx context.Context, key string, m *Message, onError func(handler string, err error)) {
	r.mu.RLock()
	hs := append([]IMessageHandler(nil), r.handlers[key]...)
	r.mu.RUnlock()
	for _, h := range hs {
		if err := h.Handle(ctx, m); err != nil && onError != nil {
			onError(h.Type(), err)
		}
	}
}

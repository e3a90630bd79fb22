// Package memory 进程内队列传输，固定数量的 worker 异步消费
package memory

import (
	"context"
	"errors"
	"sync"

	"natours/logging"
	"natours/messaging"
)

// 传输状态错误
var (
	ErrNotRunning     = errors.New("memory transport is not running")
	ErrAlreadyRunning = errors.New("memory transport is already running")
	ErrQueueFull      = errors.New("message queue is full")
)

// Config 队列配置
type Config struct {
	// QueueSize 默认 1000
	QueueSize int
	// Workers 默认 4
	Workers int
	Logger  logging.Logger
}

// Transport 内存传输
type Transport struct {
	cfg      Config
	logger   logging.Logger
	registry *messaging.Registry

	mu      sync.RWMutex
	queue   chan *messaging.Message
	running bool
	wg      sync.WaitGroup
}

var _ messaging.Transport = (*Transport)(nil)

// New 创建内存传输
func New(cfg Config) *Transport {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger()
	}
	return &Transport{
		cfg:      cfg,
		logger:   cfg.Logger.WithFields(logging.String("component", "transport.memory")),
		registry: messaging.NewRegistry(),
	}
}

// Publish 非阻塞入队，队列满时返回 ErrQueueFull
func (t *Transport) Publish(ctx context.Context, m *messaging.Message) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.running {
		return ErrNotRunning
	}
	return t.enqueue(ctx, m)
}

// PublishAll 逐条入队，遇到第一个错误即返回
func (t *Transport) PublishAll(ctx context.Context, messages []*messaging.Message) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.running {
		return ErrNotRunning
	}
	for _, m := range messages {
		if err := t.enqueue(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// enqueue 需持有读锁，保证队列不会在发送时被关闭
func (t *Transport) enqueue(ctx context.Context, m *messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case t.queue <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe 支持 messaging.Wildcard
func (t *Transport) Subscribe(messageType string, h messaging.IMessageHandler) error {
	t.registry.Add(messageType, h)
	return nil
}

// Unsubscribe 移除处理器
func (t *Transport) Unsubscribe(messageType string, h messaging.IMessageHandler) error {
	if found, _ := t.registry.Remove(messageType, h); !found {
		return errors.New("handler not found for message type " + messageType)
	}
	return nil
}

// Stats 统计
func (t *Transport) Stats() messaging.TransportStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := messaging.StatsOf(t.registry, t.running)
	s.QueueSize = t.cfg.QueueSize
	s.QueueDepth = len(t.queue)
	s.WorkerCount = t.cfg.Workers
	return s
}

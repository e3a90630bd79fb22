// Package sync 同步传输：Publish 在调用方协程内执行全部处理器
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"natours/messaging"
	"natours/messaging/middleware"
)

// ErrNotRunning 未启动
var ErrNotRunning = errors.New("sync transport is not running")

// Transport 同步传输，处理器错误合并后返回给发布者
type Transport struct {
	registry *messaging.Registry
	running  atomic.Bool
}

var _ messaging.Transport = (*Transport)(nil)

// New 创建同步传输
func New() *Transport {
	return &Transport{registry: messaging.NewRegistry()}
}

// Publish 同步分发
func (t *Transport) Publish(ctx context.Context, m *messaging.Message) error {
	if !t.running.Load() {
		return ErrNotRunning
	}
	var errs []error
	t.registry.Dispatch(middleware.Context(ctx, m), m, func(handler string, err error) {
		errs = append(errs, fmt.Errorf("%s: %w", handler, err))
	})
	return errors.Join(errs...)
}

// PublishAll 逐条分发，遇到错误即停止
func (t *Transport) PublishAll(ctx context.Context, messages []*messaging.Message) error {
	for _, m := range messages {
		if err := t.Publish(ctx, m); err != nil {
			return fmt.Errorf("publish %s: %w", m.ID, err)
		}
	}
	return nil
}

func (t *Transport) Subscribe(messageType string, h messaging.IMessageHandler) error {
	t.registry.Add(messageType, h)
	return nil
}

func (t *Transport) Unsubscribe(messageType string, h messaging.IMessageHandler) error {
	t.registry.Remove(messageType, h)
	return nil
}

func (t *Transport) Start(context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return errors.New("sync transport is already running")
	}
	return nil
}

func (t *Transport) Close() error {
	t.running.Store(false)
	return nil
}

func (t *Transport) Stats() messaging.TransportStats {
	return messaging.StatsOf(t.registry, t.running.Load())
}

package memory

import (
	"context"

	"natours/logging"
	"natours/messaging"
	"natours/messaging/middleware"
)

// Start 创建队列并启动 worker，ctx 取消时 worker 退出
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrAlreadyRunning
	}
	t.queue = make(chan *messaging.Message, t.cfg.QueueSize)
	t.running = true
	for i := 0; i < t.cfg.Workers; i++ {
		t.wg.Add(1)
		go t.worker(ctx, t.queue)
	}
	return nil
}

// Close 停止接收新消息，等待 worker 处理完队列中已有的消息
func (t *Transport) Close() error {
	_, err := t.CloseWithContext(context.Background())
	return err
}

// CloseWithContext 同 Close；ctx 先结束时返回 ctx 的错误。
// 没有 worker 时返回队列中未处理的消息。
func (t *Transport) CloseWithContext(ctx context.Context) ([]*messaging.Message, error) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return nil, ErrNotRunning
	}
	t.running = false
	queue := t.queue
	close(queue)
	t.mu.Unlock()

	if t.cfg.Workers == 0 {
		var pending []*messaging.Message
		for m := range queue {
			pending = append(pending, m)
		}
		return pending, nil
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Transport) worker(ctx context.Context, queue <-chan *messaging.Message) {
	defer t.wg.Done()
	for {
		select {
		case m, ok := <-queue:
			if !ok {
				return
			}
			t.dispatch(ctx, m)
		case <-ctx.Done():
			return
		}
	}
}

// dispatch 处理器错误只记录，不回传给发布者
func (t *Transport) dispatch(ctx context.Context, m *messaging.Message) {
	ctx = middleware.Context(ctx, m)
	t.registry.Dispatch(ctx, m, func(handler string, err error) {
		t.logger.Warn(ctx, "message handler failed",
			logging.String("handler", handler),
			logging.String("message_type", m.Type),
			logging.String("message_id", m.ID),
			logging.Error(err))
	})
}

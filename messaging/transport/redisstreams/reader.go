package redisstreams

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"natours/logging"
	"natours/messaging/middleware"
)

// readLoop 每种消息类型一个，读失败时指数退避
func (t *Transport) readLoop(ctx context.Context, messageType string) {
	defer t.wg.Done()

	stream := t.streamName(messageType)
	if err := t.ensureGroup(ctx, stream); err != nil {
		t.logger.Warn(ctx, "ensure consumer group failed", logging.String("stream", stream), logging.Error(err))
	}
	args := &redis.XReadGroupArgs{
		Group:    t.group,
		Consumer: t.cfg.Instance,
		Streams:  []string{stream, ">"},
		Count:    t.cfg.ReadCount,
		Block:    t.cfg.BlockTimeout,
	}

	backoff := t.cfg.MinReadBackoff
	for ctx.Err() == nil {
		res, err := t.client.XReadGroup(ctx, args).Result()
		switch {
		case err == nil:
			backoff = t.cfg.MinReadBackoff
			for _, sr := range res {
				for _, entry := range sr.Messages {
					t.handleEntry(ctx, sr.Stream, entry)
				}
			}
		case errors.Is(err, redis.Nil):
			// 阻塞超时，没有新消息
		case ctx.Err() != nil:
			return
		default:
			t.logger.Warn(ctx, "xreadgroup failed", logging.Duration("backoff", backoff), logging.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, t.cfg.MaxReadBackoff)
		}
	}
}

// handleEntry 无论解码或处理是否成功都确认，失败只记录日志
func (t *Transport) handleEntry(ctx context.Context, stream string, entry redis.XMessage) {
	defer func() {
		if err := t.client.XAck(ctx, stream, t.group, entry.ID).Err(); err != nil {
			t.logger.Warn(ctx, "xack failed", logging.String("entry", entry.ID), logging.Error(err))
		}
	}()

	m, err := decodeMessage(entry)
	if err != nil {
		t.logger.Warn(ctx, "drop undecodable stream entry", logging.String("entry", entry.ID), logging.Error(err))
		return
	}
	t.registry.Dispatch(middleware.Context(ctx, m), m, func(handler string, err error) {
		t.logger.Warn(ctx, "message handler failed",
			logging.String("handler", handler), logging.String("type", m.Type), logging.Error(err))
	})
}

// ensureGroup 新建的组从 $ 开始，实例首次启动不回放历史事件
func (t *Transport) ensureGroup(ctx context.Context, stream string) error {
	err := t.client.XGroupCreateMkStream(ctx, stream, t.group, "$").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

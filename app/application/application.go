// Package application 应用服务层：组合存储、报表缓存与消息总线
package application

import (
	"context"
	"time"

	"natours/domain"
	"natours/logging"
	"natours/messaging"
)

// ServiceConfig 服务配置
type ServiceConfig struct {
	// 最大批量导入数量
	MaxBatchSize int

	// 报表缓存
	CacheSize int
	CacheTTL  time.Duration

	// bcrypt 代价
	BcryptCost int

	Logger logging.Logger
}

// DefaultServiceConfig 默认服务配置
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxBatchSize: 1000,
		CacheSize:    64,
		CacheTTL:     5 * time.Minute,
		BcryptCost:   12,
	}
}

func (c *ServiceConfig) logger(component string) logging.Logger {
	l := c.Logger
	if l == nil {
		l = logging.GetLogger()
	}
	return l.WithFields(logging.String("component", component))
}

func configOrDefault(c *ServiceConfig) *ServiceConfig {
	if c == nil {
		return DefaultServiceConfig()
	}
	cp := *c
	def := DefaultServiceConfig()
	if cp.MaxBatchSize <= 0 {
		cp.MaxBatchSize = def.MaxBatchSize
	}
	if cp.CacheSize <= 0 {
		cp.CacheSize = def.CacheSize
	}
	return &cp
}

// publisher 发布领域事件，失败只记录日志，不影响已提交的写操作
type publisher struct {
	bus    *messaging.Bus
	logger logging.Logger
}

func (p publisher) publish(ctx context.Context, events ...domain.IDomainEvent) {
	if p.bus == nil || len(events) == 0 {
		return
	}
	messages := make([]*messaging.Message, 0, len(events))
	for _, e := range events {
		m, err := messaging.NewMessage(e.EventType(), e)
		if err != nil {
			p.logger.Warn(ctx, "encode event failed", logging.String("type", e.EventType()), logging.Error(err))
			continue
		}
		messages = append(messages, m)
	}
	if err := p.bus.PublishAll(ctx, messages); err != nil {
		p.logger.Warn(ctx, "publish events failed", logging.Int("count", len(messages)), logging.Error(err))
	}
}

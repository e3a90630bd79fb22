package messaging

import (
	"context"
)

// Transport 消息传输
type Transport interface {
	Publish(ctx context.Context, message *Message) error
	PublishAll(ctx context.Context, messages []*Message) error
	Subscribe(messageType string, handler IMessageHandler) error
	Unsubscribe(messageType string, handler IMessageHandler) error
	Start(ctx context.Context) error
	Close() error
	Stats() TransportStats
}

// TransportStats 传输统计
type TransportStats struct {
	Running      bool     `json:"running"`
	HandlerCount int      `json:"handlerCount"`
	MessageTypes []string `json:"messageTypes"`
	QueueSize    int      `json:"queueSize,omitempty"`
	QueueDepth   int      `json:"queueDepth,omitempty"`
	WorkerCount  int      `json:"workerCount,omitempty"`
}

// StatsOf 由登记表生成基础统计
func StatsOf(r *Registry, running bool) TransportStats {
	return TransportStats{
		Running:      running,
		HandlerCount: r.Count(),
		MessageTypes: r.Types(),
	}
}

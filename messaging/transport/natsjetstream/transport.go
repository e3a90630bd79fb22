// Package natsjetstream 基于 NATS JetStream 的跨进程传输。
//
// 每个实例对每种消息类型持有自己的持久消费者，所以同一条事件会送达
// 所有实例，适合做缓存失效通知
package natsjetstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"natours/logging"
	"natours/messaging"
	"natours/messaging/middleware"
)

var (
	ErrNotRunning     = errors.New("natsjetstream: transport not running")
	ErrAlreadyRunning = errors.New("natsjetstream: transport already running")
)

type Config struct {
	URL  string
	Conn *nats.Conn // 非空时复用，Close 不关闭它

	Stream        string
	SubjectPrefix string
	DurablePrefix string
	// Instance 区分实例的消费者，同一实例重启后从上次确认处继续
	Instance string

	AckWait       time.Duration
	MaxAckPending int
	MaxAge        time.Duration
	Replicas      int

	Logger logging.Logger
}

func (c *Config) withDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Stream == "" {
		c.Stream = "NATOURS"
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "natours."
	}
	if c.DurablePrefix == "" {
		c.DurablePrefix = "natours-"
	}
	if c.Instance == "" {
		c.Instance = "default"
	}
	if c.AckWait <= 0 {
		c.AckWait = 30 * time.Second
	}
	if c.MaxAckPending <= 0 {
		c.MaxAckPending = 1024
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
	if c.Logger == nil {
		c.Logger = logging.GetLogger()
	}
	c.Logger = c.Logger.WithFields(logging.String("component", "transport.nats"))
}

type Transport struct {
	cfg      Config
	logger   logging.Logger
	registry *messaging.Registry

	mu   sync.RWMutex
	nc   *nats.Conn
	js   nats.JetStreamContext
	subs map[string]*nats.Subscription
}

var _ messaging.Transport = (*Transport)(nil)

func NewTransport(cfg Config) *Transport {
	cfg.withDefaults()
	return &Transport{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: messaging.NewRegistry(),
		subs:     make(map[string]*nats.Subscription),
	}
}

// Publish 以消息 ID 作为 Nats-Msg-Id，服务端在去重窗口内丢弃重复发布
func (t *Transport) Publish(ctx context.Context, m *messaging.Message) error {
	t.mu.RLock()
	js := t.js
	t.mu.RUnlock()
	if js == nil {
		return ErrNotRunning
	}
	data, err := messaging.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", m.ID, err)
	}
	_, err = js.Publish(t.subject(m.Type), data, nats.Context(ctx), nats.MsgId(m.ID))
	return err
}

func (t *Transport) PublishAll(ctx context.Context, messages []*messaging.Message) error {
	for _, m := range messages {
		if err := t.Publish(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe 启动前只登记处理器，Start 时统一建立消费者
func (t *Transport) Subscribe(messageType string, h messaging.IMessageHandler) error {
	t.registry.Add(messageType, h)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.js == nil {
		return nil
	}
	return t.consumeLocked(messageType)
}

// Unsubscribe 最后一个处理器移除后退订，持久消费者保留在服务端
func (t *Transport) Unsubscribe(messageType string, h messaging.IMessageHandler) error {
	if _, empty := t.registry.Remove(messageType, h); !empty {
		return nil
	}
	t.mu.Lock()
	sub := t.subs[messageType]
	delete(t.subs, messageType)
	t.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Drain()
}

func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.js != nil {
		return ErrAlreadyRunning
	}

	nc := t.cfg.Conn
	if nc == nil {
		var err error
		nc, err = nats.Connect(t.cfg.URL, nats.Name("natours-"+t.cfg.Instance))
		if err != nil {
			return fmt.Errorf("connect nats %s: %w", t.cfg.URL, err)
		}
	}
	js, err := nc.JetStream()
	if err == nil {
		err = ensureStream(js, t.cfg)
	}
	if err != nil {
		t.release(nc)
		return err
	}
	t.nc, t.js = nc, js

	for _, mt := range t.registry.Types() {
		if err := t.consumeLocked(mt); err != nil {
			t.closeLocked()
			return err
		}
	}
	t.logger.Info(ctx, "nats transport started",
		logging.String("stream", t.cfg.Stream),
		logging.String("instance", t.cfg.Instance),
		logging.String("url", nc.ConnectedUrl()))
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	return nil
}

func (t *Transport) closeLocked() {
	for mt, sub := range t.subs {
		_ = sub.Drain()
		delete(t.subs, mt)
	}
	if t.nc != nil {
		t.release(t.nc)
	}
	t.nc, t.js = nil, nil
}

func (t *Transport) release(nc *nats.Conn) {
	if nc != t.cfg.Conn {
		nc.Close()
	}
}

func (t *Transport) Stats() messaging.TransportStats {
	t.mu.RLock()
	running := t.js != nil
	t.mu.RUnlock()
	return messaging.StatsOf(t.registry, running)
}

func (t *Transport) consumeLocked(messageType string) error {
	if _, ok := t.subs[messageType]; ok {
		return nil
	}
	sub, err := t.js.Subscribe(t.subject(messageType), t.deliver(messageType),
		nats.Durable(durableName(t.cfg, messageType)),
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.AckWait(t.cfg.AckWait),
		nats.MaxAckPending(t.cfg.MaxAckPending))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", messageType, err)
	}
	t.subs[messageType] = sub
	return nil
}

// deliver 处理器失败只记录日志，消息照常确认
func (t *Transport) deliver(messageType string) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx := context.Background()
		defer func() {
			if err := msg.Ack(); err != nil {
				t.logger.Warn(ctx, "nats ack failed", logging.Error(err))
			}
		}()

		m, err := messaging.Unmarshal(msg.Data)
		if err != nil {
			t.logger.Warn(ctx, "drop undecodable nats message",
				logging.String("subject", msg.Subject), logging.Error(err))
			return
		}
		if m.Type == "" {
			m.Type = messageType
		}
		// 每个订阅键有独立消费者，只交给该键下的处理器
		t.registry.DispatchKey(middleware.Context(ctx, m), messageType, m, func(handler string, err error) {
			t.logger.Warn(ctx, "message handler failed",
				logging.String("handler", handler), logging.String("type", m.Type), logging.Error(err))
		})
	}
}

func (t *Transport) subject(messageType string) string {
	if messageType == messaging.Wildcard {
		return t.cfg.SubjectPrefix + ">"
	}
	return t.cfg.SubjectPrefix + messageType
}

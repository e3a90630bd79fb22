// Package redisstreams 基于 Redis Streams 的跨进程传输。
//
// 每种消息类型一个 stream，每个实例一个消费组，同一条消息送达所有实例。
// 通配符处理器没有独立的读协程，只在已有具体类型读协程的消息上执行
package redisstreams

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	"natours/logging"
	"natours/messaging"
)

var ErrAlreadyRunning = errors.New("redisstreams: transport already running")

// client 用到的 go-redis 命令子集
type client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	Close() error
}

type Config struct {
	Client   redis.UniversalClient // 非空时复用，Close 不关闭它
	Addr     string
	Username string
	Password string
	DB       int

	StreamPrefix string
	GroupPrefix  string
	// Instance 消费组为 GroupPrefix+Instance，同时作为消费者名
	Instance string
	// MaxLen 每个 stream 近似保留的条目数
	MaxLen int64

	BlockTimeout   time.Duration
	ReadCount      int64
	MinReadBackoff time.Duration
	MaxReadBackoff time.Duration

	MaxPublishConcurrency int64 // 0 不限制

	Logger logging.Logger
}

func (c *Config) withDefaults() {
	if c.StreamPrefix == "" {
		c.StreamPrefix = "natours:"
	}
	if c.GroupPrefix == "" {
		c.GroupPrefix = "natours:"
	}
	if c.Instance == "" {
		c.Instance = uuid.NewString()
	}
	if c.MaxLen <= 0 {
		c.MaxLen = 10000
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = 5 * time.Second
	}
	if c.ReadCount <= 0 {
		c.ReadCount = 10
	}
	if c.MinReadBackoff <= 0 {
		c.MinReadBackoff = 100 * time.Millisecond
	}
	if c.MaxReadBackoff <= 0 {
		c.MaxReadBackoff = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logging.GetLogger()
	}
	c.Logger = c.Logger.WithFields(logging.String("component", "transport.redis"))
}

type Transport struct {
	cfg       Config
	group     string
	client    client
	ownClient bool
	logger    logging.Logger
	registry  *messaging.Registry
	pubSem    *semaphore.Weighted

	mu      sync.Mutex
	readers map[string]bool
	cancel  context.CancelFunc // 非 nil 表示运行中
	readCtx context.Context
	wg      sync.WaitGroup
}

var _ messaging.Transport = (*Transport)(nil)

// NewTransport 未提供 Client 时按 Addr 建立连接
func NewTransport(cfg Config) (*Transport, error) {
	if cfg.Client != nil {
		return newTransport(cfg, cfg.Client, false), nil
	}
	if cfg.Addr == "" {
		return nil, errors.New("redisstreams: redis address not configured")
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newTransport(cfg, rc, true), nil
}

func newTransport(cfg Config, cl client, own bool) *Transport {
	cfg.withDefaults()
	t := &Transport{
		cfg:       cfg,
		group:     cfg.GroupPrefix + cfg.Instance,
		client:    cl,
		ownClient: own,
		logger:    cfg.Logger,
		registry:  messaging.NewRegistry(),
		readers:   make(map[string]bool),
	}
	if cfg.MaxPublishConcurrency > 0 {
		t.pubSem = semaphore.NewWeighted(cfg.MaxPublishConcurrency)
	}
	return t
}

// Publish XADD 并按 MaxLen 近似裁剪
func (t *Transport) Publish(ctx context.Context, m *messaging.Message) error {
	if t.pubSem != nil {
		if err := t.pubSem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer t.pubSem.Release(1)
	}
	values, err := encodeMessage(m)
	if err != nil {
		return err
	}
	return t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: t.streamName(m.Type),
		MaxLen: t.cfg.MaxLen,
		Approx: true,
		Values: values,
	}).Err()
}

func (t *Transport) PublishAll(ctx context.Context, messages []*messaging.Message) error {
	for _, m := range messages {
		if err := t.Publish(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) Subscribe(messageType string, h messaging.IMessageHandler) error {
	t.registry.Add(messageType, h)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.spawnLocked(messageType)
	}
	return nil
}

// Unsubscribe 读协程保留到 Close，之后读到的消息没有处理器时直接确认
func (t *Transport) Unsubscribe(messageType string, h messaging.IMessageHandler) error {
	t.registry.Remove(messageType, h)
	return nil
}

func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return ErrAlreadyRunning
	}
	t.readCtx, t.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for _, mt := range t.registry.Types() {
		t.spawnLocked(mt)
	}
	t.logger.Info(ctx, "redis streams transport started",
		logging.String("group", t.group), logging.Int("readers", len(t.readers)))
	return nil
}

// Close 停止读协程并等待退出
func (t *Transport) Close() error {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.readers = make(map[string]bool)
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		t.wg.Wait()
	}
	if t.ownClient {
		return t.client.Close()
	}
	return nil
}

func (t *Transport) Stats() messaging.TransportStats {
	t.mu.Lock()
	running := t.cancel != nil
	t.mu.Unlock()
	return messaging.StatsOf(t.registry, running)
}

func (t *Transport) spawnLocked(messageType string) {
	if messageType == messaging.Wildcard || t.readers[messageType] {
		return
	}
	t.readers[messageType] = true
	t.wg.Add(1)
	go t.readLoop(t.readCtx, messageType)
}

func (t *Transport) streamName(messageType string) string {
	return t.cfg.StreamPrefix + messageType
}

// Package cache 带容量上限和过期时间的 LRU 缓存，支持合并并发加载
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config 缓存配置
type Config struct {
	// Name 用于日志与统计
	Name string

	// MaxSize 最大条目数，0 表示不限制
	MaxSize int

	// TTL 自写入起的有效期，0 表示不过期
	TTL time.Duration

	// OnEvict 条目被移除时回调，持锁调用，不能再访问缓存
	OnEvict func(key, value any)
}

// Stats 统计信息
type Stats struct {
	Hits      int64
	Misses    int64
	Loads     int64
	Evictions int64
	Expires   int64
	Size      int
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
	elem     *list.Element
}

// Cache 并发安全的泛型缓存，最近使用的条目在链表头部
type Cache[K comparable, V any] struct {
	cfg Config

	mu    sync.Mutex
	items map[K]*entry[K, V]
	lru   *list.List
	stats Stats
	// gen 每次 Clear 递增，用于丢弃清空前发起的加载结果
	gen uint64

	group singleflight.Group
	now   func() time.Time
}

// New 创建缓存
func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.Name == "" {
		cfg.Name = "unnamed"
	}
	return &Cache[K, V]{
		cfg:   cfg,
		items: make(map[K]*entry[K, V]),
		lru:   list.New(),
		now:   time.Now,
	}
}

// Get 命中时移动到链表头部，过期条目视为未命中并删除
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache[K, V]) getLocked(key K) (V, bool) {
	var zero V
	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	if c.expired(e) {
		c.removeLocked(e)
		c.stats.Misses++
		c.stats.Expires++
		return zero, false
	}
	c.lru.MoveToFront(e.elem)
	c.stats.Hits++
	return e.value, true
}

// Set 写入并刷新有效期，超过容量时驱逐最久未使用的条目
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value)
}

func (c *Cache[K, V]) setLocked(key K, value V) {
	if e, ok := c.items[key]; ok {
		e.value = value
		e.storedAt = c.now()
		c.lru.MoveToFront(e.elem)
		return
	}
	if c.cfg.MaxSize > 0 && len(c.items) >= c.cfg.MaxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeLocked(oldest.Value.(*entry[K, V]))
			c.stats.Evictions++
		}
	}
	e := &entry[K, V]{key: key, value: value, storedAt: c.now()}
	e.elem = c.lru.PushFront(e)
	c.items[key] = e
}

// GetOrLoad 未命中时调用 load，同一个键的并发加载只执行一次。
// load 出错时不缓存。
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(ctx context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	if v, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		return v, nil
	}
	gen := c.gen
	c.mu.Unlock()

	res, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		c.stats.Loads++
		if c.gen == gen {
			c.setLocked(key, v)
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

// Delete 删除条目，返回是否存在
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	return true
}

// Clear 清空缓存，进行中的加载结果不再写入
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.OnEvict != nil {
		for _, e := range c.items {
			c.cfg.OnEvict(e.key, e.value)
		}
	}
	c.items = make(map[K]*entry[K, V])
	c.lru.Init()
	c.gen++
}

// CleanExpired 删除全部过期条目，返回删除数量
func (c *Cache[K, V]) CleanExpired() int {
	if c.cfg.TTL <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.items {
		if c.expired(e) {
			c.removeLocked(e)
			n++
		}
	}
	c.stats.Expires += int64(n)
	return n
}

// Stats 统计快照
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = len(c.items)
	return s
}

// Len 当前条目数
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	return c.cfg.TTL > 0 && c.now().Sub(e.storedAt) >= c.cfg.TTL
}

func (c *Cache[K, V]) removeLocked(e *entry[K, V]) {
	if c.cfg.OnEvict != nil {
		c.cfg.OnEvict(e.key, e.value)
	}
	c.lru.Remove(e.elem)
	delete(c.items, e.key)
}

// String 便于日志输出
func (c *Cache[K, V]) String() string {
	s := c.Stats()
	return fmt.Sprintf("cache[%s]: size=%d/%d hits=%d misses=%d loads=%d evictions=%d expires=%d",
		c.cfg.Name, s.Size, c.cfg.MaxSize, s.Hits, s.Misses, s.Loads, s.Evictions, s.Expires)
}

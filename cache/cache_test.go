package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 手动推进的时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(cfg Config) (*Cache[string, int], *fakeClock) {
	c := New[string, int](cfg)
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.now
	return c, clock
}

func TestCache_SetGetDelete(t *testing.T) {
	c, _ := newTestCache(Config{Name: "test", MaxSize: 10})

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCache_LRUEviction(t *testing.T) {
	var evicted []any
	c, _ := newTestCache(Config{MaxSize: 2, OnEvict: func(k, _ any) { evicted = append(evicted, k) }})

	c.Set("a", 1)
	c.Set("b", 2)
	// 访问 a，b 成为最久未使用
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []any{"b"}, evicted)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_TTL(t *testing.T) {
	c, clock := newTestCache(Config{TTL: time.Minute})
	c.Set("a", 1)
	c.Set("b", 2)

	clock.advance(30 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	// 读取不延长有效期
	clock.advance(30 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)

	assert.Equal(t, 1, c.CleanExpired())
	s := c.Stats()
	assert.Equal(t, int64(2), s.Expires)
	assert.Equal(t, 0, s.Size)
}

func TestCache_GetOrLoad(t *testing.T) {
	c, _ := newTestCache(Config{})
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrLoad(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	v, err = c.GetOrLoad(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = c.GetOrLoad(ctx, "bad", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get("bad")
	assert.False(t, ok)
}

func TestCache_GetOrLoadCoalesces(t *testing.T) {
	c, _ := newTestCache(Config{})
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "k", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	// 等第一个加载开始
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 7, v)
	}
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestCache_ClearDropsInflightLoad(t *testing.T) {
	c, _ := newTestCache(Config{})
	v, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		c.Clear()
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(Config{MaxSize: 50})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := string(rune('a' + (g*200+i)%60))
				c.Set(key, i)
				_, _ = c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

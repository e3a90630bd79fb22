package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"natours/logging"
	"natours/messaging"
	"natours/messaging/middleware"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func counter(n *atomic.Int32) messaging.IMessageHandler {
	return messaging.NewHandler("counter", func(context.Context, *messaging.Message) error {
		n.Add(1)
		return nil
	})
}

// newTransport workers 为 0 时只入队不消费
func newTransport(workers int) *Transport {
	tr := New(Config{QueueSize: 8, Workers: workers, Logger: logging.NewNoopLogger()})
	tr.cfg.Workers = workers
	return tr
}

func TestTransport_PublishFlow(t *testing.T) {
	tr := newTransport(2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, tr.Start(ctx))

	var n, all atomic.Int32
	require.NoError(t, tr.Subscribe("tour.created", counter(&n)))
	require.NoError(t, tr.Subscribe(messaging.Wildcard, counter(&all)))

	require.NoError(t, tr.Publish(ctx, &messaging.Message{ID: "1", Type: "tour.created"}))
	require.NoError(t, tr.Publish(ctx, &messaging.Message{ID: "2", Type: "tour.deleted"}))

	require.Eventually(t, func() bool { return n.Load() == 1 && all.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, tr.Close())
}

func TestTransport_CloseDrainsQueue(t *testing.T) {
	tr := newTransport(1)
	ctx := context.Background()
	require.NoError(t, tr.Start(ctx))

	var n atomic.Int32
	require.NoError(t, tr.Subscribe("t", counter(&n)))
	require.NoError(t, tr.PublishAll(ctx, []*messaging.Message{{ID: "1", Type: "t"}, {ID: "2", Type: "t"}}))
	require.NoError(t, tr.Close())
	assert.Equal(t, int32(2), n.Load())

	assert.ErrorIs(t, tr.Publish(ctx, &messaging.Message{ID: "3", Type: "t"}), ErrNotRunning)
	assert.ErrorIs(t, tr.Close(), ErrNotRunning)
}

func TestTransport_QueueFull(t *testing.T) {
	tr := newTransport(0)
	tr.cfg.QueueSize = 1
	ctx := context.Background()
	require.NoError(t, tr.Start(ctx))

	require.NoError(t, tr.Publish(ctx, &messaging.Message{ID: "1"}))
	assert.ErrorIs(t, tr.Publish(ctx, &messaging.Message{ID: "2"}), ErrQueueFull)
	assert.Equal(t, 1, tr.Stats().QueueDepth)

	pending, err := tr.CloseWithContext(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1", pending[0].ID)
}

func TestTransport_CloseTimeout(t *testing.T) {
	tr := newTransport(1)
	ctx := context.Background()
	require.NoError(t, tr.Start(ctx))

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, tr.Subscribe("block", messaging.NewHandler("block", func(context.Context, *messaging.Message) error {
		close(started)
		<-release
		return nil
	})))
	require.NoError(t, tr.Publish(ctx, &messaging.Message{ID: "1", Type: "block"}))
	<-started

	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err := tr.CloseWithContext(timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	tr.wg.Wait()
}

func TestTransport_HandlerErrorDoesNotStopOthers(t *testing.T) {
	tr := newTransport(1)
	ctx := context.Background()
	require.NoError(t, tr.Start(ctx))

	var n atomic.Int32
	require.NoError(t, tr.Subscribe("t", messaging.NewHandler("fail", func(context.Context, *messaging.Message) error {
		return errors.New("boom")
	})))
	require.NoError(t, tr.Subscribe("t", counter(&n)))
	require.NoError(t, tr.Publish(ctx, &messaging.Message{ID: "1", Type: "t"}))
	require.NoError(t, tr.Close())
	assert.Equal(t, int32(1), n.Load())
}

func TestTransport_RequestIDReachesHandler(t *testing.T) {
	tr := newTransport(1)
	ctx := context.Background()
	require.NoError(t, tr.Start(ctx))

	got := make(chan string, 1)
	require.NoError(t, tr.Subscribe("t", messaging.NewHandler("rid", func(ctx context.Context, _ *messaging.Message) error {
		got <- logging.RequestIDFrom(ctx)
		return nil
	})))
	m := &messaging.Message{ID: "1", Type: "t"}
	m.SetMeta(middleware.KeyRequestID, "req-9")
	require.NoError(t, tr.Publish(ctx, m))
	require.NoError(t, tr.Close())
	assert.Equal(t, "req-9", <-got)
}

func TestTransport_Unsubscribe(t *testing.T) {
	tr := newTransport(0)
	var n atomic.Int32
	h := counter(&n)
	require.NoError(t, tr.Subscribe("t", h))
	assert.Equal(t, 1, tr.Stats().HandlerCount)
	require.NoError(t, tr.Unsubscribe("t", h))
	assert.Error(t, tr.Unsubscribe("t", h))
	assert.Equal(t, 0, tr.Stats().HandlerCount)
}

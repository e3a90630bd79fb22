package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"natours/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeServer 记录生命周期调用顺序
type fakeServer struct {
	mu    sync.Mutex
	steps []string

	loadConfigErr error
	setupErr      error
	runErr        error
	shutdownErr   error

	// blockRun 为 true 时 Run 阻塞到 ctx 取消
	blockRun bool
	bgDone   chan struct{}
}

func (s *fakeServer) record(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step)
}

func (s *fakeServer) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.steps...)
}

func (s *fakeServer) Name() string { return "fake" }

func (s *fakeServer) LoadConfig() error {
	s.record("LoadConfig")
	return s.loadConfigErr
}

func (s *fakeServer) SetupDependencies(context.Context) error {
	s.record("SetupDependencies")
	return s.setupErr
}

func (s *fakeServer) StartBackgroundTasks(ctx context.Context) error {
	s.record("StartBackgroundTasks")
	if s.bgDone != nil {
		go func() {
			<-ctx.Done()
			close(s.bgDone)
		}()
	}
	return nil
}

func (s *fakeServer) Run(ctx context.Context) error {
	s.record("Run")
	if s.blockRun {
		<-ctx.Done()
	}
	return s.runErr
}

func (s *fakeServer) Shutdown(context.Context) error {
	s.record("Shutdown")
	return s.shutdownErr
}

func newEngine(s IServer) *Engine {
	return NewEngine(s, WithShutdownTimeout(50*time.Millisecond), WithLogger(logging.NewNoopLogger()))
}

var fullLifecycle = []string{"LoadConfig", "SetupDependencies", "StartBackgroundTasks", "Run", "Shutdown"}

func TestEngine_LifecycleSuccess(t *testing.T) {
	s := &fakeServer{}
	e := newEngine(s)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, StateStopped, e.State())
	assert.Equal(t, fullLifecycle, s.snapshot())
}

func TestEngine_RunErrorSetsErrorState(t *testing.T) {
	runErr := errors.New("run failed")
	s := &fakeServer{runErr: runErr}
	e := newEngine(s)

	err := e.Run(context.Background())
	require.ErrorIs(t, err, runErr)
	assert.Contains(t, err.Error(), "server execution error")
	assert.Equal(t, StateError, e.State())
	assert.Equal(t, fullLifecycle, s.snapshot())
}

func TestEngine_LoadConfigErrorStopsEarly(t *testing.T) {
	cfgErr := errors.New("config failed")
	s := &fakeServer{loadConfigErr: cfgErr}
	e := newEngine(s)

	err := e.Run(context.Background())
	require.ErrorIs(t, err, cfgErr)
	assert.Contains(t, err.Error(), "failed to load config")
	assert.Equal(t, StateError, e.State())
	assert.Equal(t, []string{"LoadConfig"}, s.snapshot())
}

// 依赖初始化失败时仍然释放已创建的资源
func TestEngine_SetupErrorShutsDown(t *testing.T) {
	setupErr := errors.New("db unavailable")
	s := &fakeServer{setupErr: setupErr}
	e := newEngine(s)

	err := e.Run(context.Background())
	require.ErrorIs(t, err, setupErr)
	assert.Equal(t, StateError, e.State())
	assert.Equal(t, []string{"LoadConfig", "SetupDependencies", "Shutdown"}, s.snapshot())
}

func TestEngine_ShutdownError(t *testing.T) {
	shutdownErr := errors.New("close failed")
	s := &fakeServer{shutdownErr: shutdownErr}
	e := newEngine(s)

	require.ErrorIs(t, e.Run(context.Background()), shutdownErr)
	assert.Equal(t, StateError, e.State())
}

func TestEngine_ContextCancelStopsRun(t *testing.T) {
	s := &fakeServer{blockRun: true, bgDone: make(chan struct{})}
	e := newEngine(s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return e.State() == StateRunning }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after cancel")
	}
	assert.Equal(t, StateStopped, e.State())

	select {
	case <-s.bgDone:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("background task context was not cancelled")
	}
}

func TestEngine_Hooks(t *testing.T) {
	var order []string
	s := &fakeServer{}
	e := NewEngine(s,
		WithLogger(logging.NewNoopLogger()),
		WithBeforeStart(func(context.Context) error { order = append(order, "before-start"); return nil }),
		WithBeforeStop(func(context.Context) error { order = append(order, "before-stop"); return nil }),
		WithAfterStop(func(context.Context) error { order = append(order, "after-stop"); return nil }),
	)
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []string{"before-start", "before-stop", "after-stop"}, order)

	hookErr := errors.New("not ready")
	e = NewEngine(&fakeServer{}, WithLogger(logging.NewNoopLogger()),
		WithBeforeStart(func(context.Context) error { return hookErr }))
	assert.ErrorIs(t, e.Run(context.Background()), hookErr)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Running", StateRunning.String())
	assert.Equal(t, "Unknown", State(99).String())
}

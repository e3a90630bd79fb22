// Package server 服务生命周期编排与 natours 服务装配
package server

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"

	"natours/logging"
)

// IServer 业务应用实现的生命周期钩子，由 Engine 按固定顺序调用
type IServer interface {
	Name() string

	// LoadConfig 步骤 1: 配置文件与环境变量
	LoadConfig() error

	// SetupDependencies 步骤 2: 数据库、消息传输、服务与路由
	SetupDependencies(ctx context.Context) error

	// StartBackgroundTasks 步骤 3: 消息消费等非阻塞任务
	StartBackgroundTasks(ctx context.Context) error

	// Run 步骤 4: 阻塞运行 HTTP 服务，ctx 取消或服务关闭后返回
	Run(ctx context.Context) error

	// Shutdown 步骤 5: 释放资源
	Shutdown(ctx context.Context) error
}

// Engine 编排启动流程：Init -> Setup -> Background -> Run -> Signal -> Shutdown
type Engine struct {
	server  IServer
	options *Options
	logger  logging.Logger
	state   atomic.Int32
}

// NewEngine 创建启动引擎
func NewEngine(server IServer, opts ...Option) *Engine {
	options := DefaultOptions()
	if name := server.Name(); name != "" {
		options.Name = name
	}
	for _, o := range opts {
		o(options)
	}
	if options.Logger == nil {
		options.Logger = logging.GetLogger()
	}

	e := &Engine{
		server:  server,
		options: options,
		logger: options.Logger.WithFields(
			logging.String("component", "server"),
			logging.String("app", options.Name),
		),
	}
	e.setState(StatePending)
	return e
}

// State 当前状态
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Start 运行直到收到 SIGINT/SIGTERM/SIGHUP 或服务自行退出
func (e *Engine) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()
	return e.Run(ctx)
}

// Run 与 Start 相同，但由 ctx 控制退出
func (e *Engine) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	e.logger.Info(ctx, "starting application", logging.String("version", e.options.Version))

	e.setState(StateInitializing)
	if err := runHooks(ctx, e.options.Hooks(BeforeInit)); err != nil {
		e.setState(StateError)
		return fmt.Errorf("before-init hook failed: %w", err)
	}
	if err := e.server.LoadConfig(); err != nil {
		e.setState(StateError)
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := runHooks(ctx, e.options.Hooks(AfterInit)); err != nil {
		e.setState(StateError)
		return fmt.Errorf("after-init hook failed: %w", err)
	}

	// 依赖初始化有超时
	setupCtx, setupCancel := context.WithTimeout(ctx, e.options.StartupTimeout)
	err := e.server.SetupDependencies(setupCtx)
	setupCancel()
	if err != nil {
		e.setState(StateError)
		e.shutdown()
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	e.setState(StatePrepared)

	if err := runHooks(ctx, e.options.Hooks(BeforeStart)); err != nil {
		e.setState(StateError)
		e.shutdown()
		return fmt.Errorf("before-start hook failed: %w", err)
	}
	if err := e.server.StartBackgroundTasks(ctx); err != nil {
		e.setState(StateError)
		e.shutdown()
		return fmt.Errorf("failed to start background tasks: %w", err)
	}

	e.setState(StateRunning)
	errChan := make(chan error, 1)
	go func() {
		errChan <- e.server.Run(ctx)
	}()
	e.logger.Info(ctx, "server is running")

	e.runLoggedHooks(ctx, AfterStart)

	var runErr error
	select {
	case runErr = <-errChan:
		if runErr != nil {
			e.logger.Error(ctx, "server stopped with error", logging.Error(runErr))
		} else {
			e.logger.Info(ctx, "server stopped")
		}
	case <-ctx.Done():
		e.logger.Info(context.Background(), "shutdown requested", logging.Error(context.Cause(ctx)))
	}
	cancel()

	if err := e.shutdown(); err != nil {
		return err
	}
	if runErr != nil {
		e.setState(StateError)
		return fmt.Errorf("server execution error: %w", runErr)
	}

	e.setState(StateStopped)
	e.logger.Info(context.Background(), "shutdown complete")
	return nil
}

// shutdown 使用独立的超时上下文，启动失败时同样调用以释放已创建的资源
func (e *Engine) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), e.options.ShutdownTimeout)
	defer cancel()

	failed := e.State() == StateError
	if !failed {
		e.setState(StateStopping)
	}
	e.runLoggedHooks(ctx, BeforeStop)
	if err := e.server.Shutdown(ctx); err != nil {
		e.setState(StateError)
		e.logger.Error(ctx, "shutdown error", logging.Error(err))
		return err
	}
	e.runLoggedHooks(ctx, AfterStop)
	return nil
}

func runHooks(ctx context.Context, hooks []Hook) error {
	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runLoggedHooks(ctx context.Context, phase Phase) {
	for i, hook := range e.options.Hooks(phase) {
		if err := hook(ctx); err != nil {
			e.logger.Warn(ctx, "lifecycle hook failed",
				logging.Int("phase", int(phase)), logging.Int("index", i), logging.Error(err))
		}
	}
}

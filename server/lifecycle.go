package server

import (
	"context"
	"time"

	"natours/logging"
)

// State Engine 所处的生命周期阶段
type State int

const (
	StatePending State = iota
	StateInitializing
	// StatePrepared 依赖已装配，尚未开始服务
	StatePrepared
	StateRunning
	StateStopping
	StateStopped
	// StateError 启动、运行或关闭失败
	StateError
)

var stateNames = [...]string{"Pending", "Initializing", "Prepared", "Running", "Stopping", "Stopped", "Error"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Hook 生命周期回调
type Hook func(ctx context.Context) error

// Phase 回调挂载点
type Phase int

const (
	BeforeInit Phase = iota
	AfterInit
	BeforeStart
	AfterStart
	BeforeStop
	AfterStop
)

// Version 构建时通过 -ldflags "-X natours/server.Version=..." 注入
var Version = "dev"

// Options Engine 配置
type Options struct {
	Name            string
	Version         string
	Logger          logging.Logger
	StartupTimeout  time.Duration
	ShutdownTimeout time.Duration

	hooks map[Phase][]Hook
}

// Option 修改 Engine 配置
type Option func(*Options)

// DefaultOptions 默认启动 30 秒、关闭 10 秒超时
func DefaultOptions() *Options {
	return &Options{
		Name:            "natours",
		Version:         Version,
		StartupTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		hooks:           map[Phase][]Hook{},
	}
}

// Hooks 返回挂在 phase 上的回调，按注册顺序
func (o *Options) Hooks(phase Phase) []Hook {
	return o.hooks[phase]
}

func WithLogger(l logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithStartupTimeout(d time.Duration) Option {
	return func(o *Options) { o.StartupTimeout = d }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) { o.ShutdownTimeout = d }
}

// WithHook 在 phase 上追加回调。Before* 阶段的回调失败会中止启动，
// AfterStart 与停止阶段的失败只记录日志
func WithHook(phase Phase, fn Hook) Option {
	return func(o *Options) {
		if o.hooks == nil {
			o.hooks = map[Phase][]Hook{}
		}
		o.hooks[phase] = append(o.hooks[phase], fn)
	}
}

func WithBeforeStart(fn Hook) Option { return WithHook(BeforeStart, fn) }
func WithBeforeStop(fn Hook) Option  { return WithHook(BeforeStop, fn) }
func WithAfterStop(fn Hook) Option   { return WithHook(AfterStop, fn) }

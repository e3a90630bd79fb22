package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"natours/app/api"
	"natours/app/application"
	"natours/codegen/snowflake"
	"natours/config"
	core "natours/data/db"
	dbbasic "natours/data/db/basic"
	"natours/data/db/migrate"
	ormbasic "natours/data/orm/basic"
	"natours/data/store"
	httpx "natours/http"
	"natours/http/basic"
	"natours/logging"
	"natours/messaging"
	"natours/messaging/middleware"
	"natours/messaging/transport/memory"
	"natours/messaging/transport/natsjetstream"
	"natours/messaging/transport/redisstreams"
	synctransport "natours/messaging/transport/sync"
	"natours/patterns/retry"
)

// ServerOption 修改 Server 的装配方式
type ServerOption func(*Server)

// WithConfig 使用现成配置，跳过文件与环境变量
func WithConfig(cfg *config.Config) ServerOption {
	return func(s *Server) { s.cfg = cfg }
}

// WithConfigSource 配置文件与环境变量前缀
func WithConfigSource(file, prefix string) ServerOption {
	return func(s *Server) { s.configFile, s.envPrefix = file, prefix }
}

// WithServerLogger 替换按配置创建的 zap 日志
func WithServerLogger(l logging.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithListener 在给定监听器上提供 HTTP 服务
func WithListener(ln net.Listener) ServerOption {
	return func(s *Server) { s.listener = ln }
}

// Server natours 服务：SQLite 存储、消息总线、线路与用户服务、chi HTTP 服务
type Server struct {
	configFile string
	envPrefix  string
	listener   net.Listener

	cfg    *config.Config
	logger logging.Logger
	zap    *logging.ZapLogger

	db         *dbbasic.DB
	transport  messaging.Transport
	bus        *messaging.Bus
	tours      *application.TourService
	users      *application.UserService
	httpServer *basic.HttpServer
}

var _ IServer = (*Server)(nil)

func NewServer(opts ...ServerOption) *Server {
	s := &Server{configFile: config.DefaultFile, envPrefix: config.DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Name() string { return "natours" }

// LoadConfig 读取配置并按日志级别创建 zap 日志
func (s *Server) LoadConfig() error {
	if s.cfg == nil {
		cfg, err := config.LoadFrom(s.configFile, s.envPrefix)
		if err != nil {
			return err
		}
		s.cfg = cfg
	} else if err := s.cfg.Validate(); err != nil {
		return err
	}
	if err := snowflake.SetNode(s.cfg.NodeID); err != nil {
		return err
	}

	if s.logger == nil {
		z, err := logging.NewZapLogger(s.cfg.LogLevel, s.cfg.IsDevelopment())
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		s.zap = z
		s.logger = z
		logging.SetLogger(z)
	}
	return nil
}

// Config 已加载的配置
func (s *Server) Config() *config.Config { return s.cfg }

// Logger 服务日志
func (s *Server) Logger() logging.Logger { return s.logger }

// Tours 线路服务，SetupDependencies 之后可用
func (s *Server) Tours() *application.TourService { return s.tours }

// Users 用户服务，SetupDependencies 之后可用
func (s *Server) Users() *application.UserService { return s.users }

// Handler HTTP 处理器，SetupDependencies 之后可用
func (s *Server) Handler() http.Handler { return s.httpServer.Handler() }

// OpenStore 打开数据库并执行迁移，命令行工具只需要这一步
func (s *Server) OpenStore(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := dbbasic.New(core.DBConfig{
		Database:     s.cfg.DBPath,
		MaxOpenConns: s.cfg.DBMaxOpenConns,
		BusyTimeout:  s.cfg.DBBusyTimeoutMS,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	if err := migrate.Up(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	s.logger.Info(ctx, "database ready", logging.String("path", s.cfg.DBPath))
	return nil
}

// SetupDependencies 数据库、消息总线、服务与路由
func (s *Server) SetupDependencies(ctx context.Context) error {
	if err := s.OpenStore(ctx); err != nil {
		return err
	}
	o := ormbasic.New(s.db)

	transport, err := newTransport(s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create message transport: %w", err)
	}
	s.transport = transport
	s.bus = messaging.NewBus(transport)
	s.bus.Use(middleware.NewRequestID())
	s.bus.Use(middleware.NewLogging(s.logger))

	svcCfg := application.DefaultServiceConfig()
	svcCfg.CacheTTL = s.cfg.CacheTTL
	svcCfg.BcryptCost = s.cfg.BcryptCost
	svcCfg.Logger = s.logger

	s.tours, err = application.NewTourService(store.NewTours(o, store.WithLogger(s.logger)), s.bus, svcCfg)
	if err != nil {
		return err
	}
	s.users = application.NewUserService(store.NewUsers(o, store.WithLogger(s.logger)), svcCfg)

	return s.setupHTTP()
}

func (s *Server) setupHTTP() error {
	web := httpx.DefaultWebConfig()
	web.Port = s.cfg.Port
	web.Development = s.cfg.IsDevelopment()
	web.MaxBodyBytes = s.cfg.BodyLimit
	web.RateLimitRPS = s.cfg.RateLimitRPS
	web.RateLimitBurst = s.cfg.RateLimitBurst

	srv := basic.NewHTTPServer(web, s.logger)
	srv.UseHTTP(basic.RequestID, basic.Recoverer(s.logger))
	if web.Development {
		srv.UseHTTP(basic.RequestLogger(s.logger))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := basic.NewMetrics(reg)
	srv.UseHTTP(metrics.Middleware, basic.BodyLimit(web.MaxBodyBytes), chimw.StripSlashes)
	srv.Mount("/metrics", metrics.Handler())

	srv.GET("/health", func(ctx httpx.IHttpContext) error {
		return ctx.JSON(http.StatusOK, map[string]any{
			"status":    httpx.StatusSuccess,
			"transport": s.transport.Stats(),
		})
	})

	builder := api.NewApiBuilder(s.tours, s.users)
	if web.RateLimitRPS > 0 {
		limiter := basic.NewRateLimiter(web.RateLimitRPS, web.RateLimitBurst, time.Hour)
		builder.Middleware(limiter.Guard)
	}
	if err := builder.Build(srv); err != nil {
		return err
	}
	s.httpServer = srv
	return nil
}

// StartBackgroundTasks 启动消息传输，消息服务尚未就绪时按退避重试
func (s *Server) StartBackgroundTasks(ctx context.Context) error {
	cfg := retry.DefaultConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		s.logger.Warn(ctx, "message transport not ready",
			logging.String("transport", s.cfg.Transport),
			logging.Int("attempt", attempt),
			logging.Duration("retry_in", delay),
			logging.Error(err))
	}
	err := retry.Do(ctx, func(ctx context.Context, _ int) error {
		err := s.transport.Start(ctx)
		if stderrors.Is(err, memory.ErrAlreadyRunning) {
			return retry.Permanent(err)
		}
		return err
	}, cfg)
	if err != nil {
		return fmt.Errorf("failed to start message transport: %w", err)
	}
	return nil
}

// Run 阻塞提供 HTTP 服务，Shutdown 之后返回 nil
func (s *Server) Run(ctx context.Context) error {
	if s.httpServer == nil {
		return fmt.Errorf("HTTP server not initialized")
	}
	if s.listener != nil {
		s.logger.Info(ctx, "listening", logging.String("addr", s.listener.Addr().String()))
		return s.httpServer.Serve(s.listener)
	}
	s.logger.Info(ctx, "listening", logging.String("addr", s.cfg.Addr()))
	return s.httpServer.Start(s.cfg.Addr())
}

// Shutdown 依次关闭 HTTP 服务、消息传输与数据库
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop HTTP server: %w", err))
		}
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close message transport: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if s.zap != nil {
		// stderr 上的 Sync 在部分平台返回 EINVAL
		_ = s.zap.Sync()
	}
	return stderrors.Join(errs...)
}

// DB 数据库句柄，OpenStore 之后可用
func (s *Server) DB() *dbbasic.DB { return s.db }

func newTransport(cfg *config.Config, logger logging.Logger) (messaging.Transport, error) {
	switch cfg.Transport {
	case config.TransportSync:
		return synctransport.New(), nil
	case config.TransportNATS:
		return natsjetstream.NewTransport(natsjetstream.Config{
			URL:      cfg.NatsURL,
			Stream:   cfg.NatsStream,
			Instance: cfg.Instance(),
			Logger:   logger,
		}), nil
	case config.TransportRedis:
		t, err := redisstreams.NewTransport(redisstreams.Config{
			Addr:         cfg.RedisAddr,
			StreamPrefix: cfg.RedisStream,
			Instance:     cfg.Instance(),
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return memory.New(memory.Config{Logger: logger}), nil
	}
}

package http

import (
	"context"
	"net/http"
	"time"
)

// IHttpServer HTTP 服务器接口
type IHttpServer interface {
	GET(path string, handler HttpHandler) IHttpServer
	POST(path string, handler HttpHandler) IHttpServer
	PATCH(path string, handler HttpHandler) IHttpServer
	DELETE(path string, handler HttpHandler) IHttpServer

	Group(prefix string) IRouteGroup
	Use(middleware ...Middleware) IHttpServer

	// UseHTTP 标准库形式的中间件，在路由匹配之前执行
	UseHTTP(middleware ...func(http.Handler) http.Handler) IHttpServer

	// Mount 挂载现成的 http.Handler，例如 /metrics
	Mount(path string, h http.Handler) IHttpServer

	// NotFound 未匹配路由的处理器
	NotFound(handler HttpHandler) IHttpServer

	Handler() http.Handler
	Start(addr string) error
	Stop(ctx context.Context) error
}

// Middleware 定义 HTTP 中间件签名
type Middleware func(ctx IHttpContext, next func() error) error

// IRouteGroup 定义路由组接口
type IRouteGroup interface {
	GET(path string, handler HttpHandler) IRouteGroup
	POST(path string, handler HttpHandler) IRouteGroup
	PATCH(path string, handler HttpHandler) IRouteGroup
	DELETE(path string, handler HttpHandler) IRouteGroup

	Group(prefix string) IRouteGroup
	Use(middleware ...Middleware) IRouteGroup
}

// WebConfig HTTP 服务配置
type WebConfig struct {
	Host string
	Port int

	// Development 开发模式：请求日志与详细错误
	Development bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxBodyBytes 请求体上限
	MaxBodyBytes int64

	// RateLimit 每个客户端 IP 的令牌桶，RPS <= 0 表示不限流
	RateLimitRPS   float64
	RateLimitBurst int
}

// DefaultWebConfig 默认配置
func DefaultWebConfig() *WebConfig {
	return &WebConfig{
		Port:           5000,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxBodyBytes:   10 << 10,
		RateLimitRPS:   100.0 / 3600,
		RateLimitBurst: 100,
	}
}

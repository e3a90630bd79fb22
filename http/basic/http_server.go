// Package basic 基于 chi 的 IHttpServer 实现
package basic

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	httpx "natours/http"
	"natours/logging"
)

// HttpServer 路由在第一次调用 Handler 时注册到 chi
type HttpServer struct {
	config          *httpx.WebConfig
	utils           *HttpUtils
	routes          []*route
	middlewares     []httpx.Middleware
	httpMiddlewares []func(http.Handler) http.Handler
	mounts          []mount
	notFound        httpx.HttpHandler

	mu      sync.Mutex
	server  *http.Server
	stopped bool
	once    sync.Once
	handler http.Handler
}

type route struct {
	method  string
	pattern string
	handler httpx.HttpHandler
}

type mount struct {
	path    string
	handler http.Handler
}

var _ httpx.IHttpServer = (*HttpServer)(nil)

// NewHTTPServer 创建服务器
func NewHTTPServer(config *httpx.WebConfig, logger logging.Logger) *HttpServer {
	if config == nil {
		config = httpx.DefaultWebConfig()
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &HttpServer{
		config: config,
		utils:  &HttpUtils{Development: config.Development, Logger: logger},
	}
}

func (s *HttpServer) GET(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodGet, path, handler)
}
func (s *HttpServer) POST(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodPost, path, handler)
}
func (s *HttpServer) PATCH(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodPatch, path, handler)
}
func (s *HttpServer) DELETE(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.addRoute(http.MethodDelete, path, handler)
}

func (s *HttpServer) addRoute(method, path string, handler httpx.HttpHandler) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, &route{method: method, pattern: path, handler: handler})
	return s
}

// Group 路由分组
func (s *HttpServer) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{prefix: prefix, server: s}
}

// Use 全局中间件，在路由匹配之后、处理器之前执行
func (s *HttpServer) Use(middleware ...httpx.Middleware) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, middleware...)
	return s
}

func (s *HttpServer) UseHTTP(middleware ...func(http.Handler) http.Handler) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.httpMiddlewares = append(s.httpMiddlewares, middleware...)
	return s
}

func (s *HttpServer) Mount(path string, h http.Handler) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts = append(s.mounts, mount{path: path, handler: h})
	return s
}

func (s *HttpServer) NotFound(handler httpx.HttpHandler) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notFound = handler
	return s
}

// Handler 完成路由注册，之后再添加的路由不会生效
func (s *HttpServer) Handler() http.Handler {
	s.once.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.handler = s.buildRouter()
	})
	return s.handler
}

func (s *HttpServer) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(s.httpMiddlewares...)
	for _, rt := range s.routes {
		r.Method(rt.method, convertPathPattern(rt.pattern), s.createHandler(rt.handler))
	}
	for _, m := range s.mounts {
		r.Handle(m.path, m.handler)
	}
	if s.notFound != nil {
		h := s.createHandler(s.notFound)
		r.NotFound(h)
		r.MethodNotAllowed(h)
	}
	return r
}

// Start 监听 addr，为空时使用配置中的 Host:Port
func (s *HttpServer) Start(addr string) error {
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 在给定监听器上提供服务，Stop 之后返回 nil
func (s *HttpServer) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ln.Close()
	}
	s.server = srv
	s.mu.Unlock()
	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HttpServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.stopped = true
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// convertPathPattern 将 :id 转为 chi 的 {id}
func convertPathPattern(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}

func (s *HttpServer) createHandler(h httpx.HttpHandler) http.HandlerFunc {
	middlewares := s.middlewares
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := NewHttpContext(w, req)
		if err := executeMiddlewareChain(ctx, middlewares, h); err != nil {
			s.utils.WriteErrorResponse(ctx, err)
		}
	}
}

func executeMiddlewareChain(ctx httpx.IHttpContext, middlewares []httpx.Middleware, handler httpx.HttpHandler) error {
	if len(middlewares) == 0 {
		return handler(ctx)
	}
	return middlewares[0](ctx, func() error { return executeMiddlewareChain(ctx, middlewares[1:], handler) })
}

// RouteGroup 实现 IRouteGroup
type RouteGroup struct {
	prefix      string
	server      *HttpServer
	middlewares []httpx.Middleware
}

func (g *RouteGroup) GET(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodGet, path, h)
}
func (g *RouteGroup) POST(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodPost, path, h)
}
func (g *RouteGroup) PATCH(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodPatch, path, h)
}
func (g *RouteGroup) DELETE(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.add(http.MethodDelete, path, h)
}

// Group 子分组继承父分组的中间件
func (g *RouteGroup) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{
		prefix:      g.prefix + prefix,
		server:      g.server,
		middlewares: append([]httpx.Middleware(nil), g.middlewares...),
	}
}

func (g *RouteGroup) Use(mw ...httpx.Middleware) httpx.IRouteGroup {
	g.middlewares = append(g.middlewares, mw...)
	return g
}

func (g *RouteGroup) add(method, path string, h httpx.HttpHandler) httpx.IRouteGroup {
	g.server.addRoute(method, g.prefix+path, g.wrap(h))
	return g
}

// wrap 在执行时读取中间件，注册路由之后调用 Use 同样生效
func (g *RouteGroup) wrap(h httpx.HttpHandler) httpx.HttpHandler {
	return func(ctx httpx.IHttpContext) error { return executeMiddlewareChain(ctx, g.middlewares, h) }
}

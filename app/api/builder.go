package api

import (
	"fmt"

	"natours/errors"
	httpx "natours/http"
)

// ApiBuilder 组装 /api/v1 下的全部资源路由
type ApiBuilder struct {
	routeConfig *RouteConfig
	middlewares []httpx.Middleware
	tours       TourService
	users       UserService
}

// NewApiBuilder users 可以为空，此时不注册 /users
func NewApiBuilder(tours TourService, users UserService) *ApiBuilder {
	return &ApiBuilder{
		routeConfig: DefaultRouteConfig(),
		tours:       tours,
		users:       users,
	}
}

// Route 配置路由
func (b *ApiBuilder) Route(config func(*RouteConfig)) *ApiBuilder {
	config(b.routeConfig)
	return b
}

// Middleware 添加中间件
func (b *ApiBuilder) Middleware(middlewares ...httpx.Middleware) *ApiBuilder {
	b.middlewares = append(b.middlewares, middlewares...)
	return b
}

// Build 注册资源路由以及兜底的 404 处理器
func (b *ApiBuilder) Build(server httpx.IHttpServer) error {
	if b.tours == nil {
		return fmt.Errorf("tour service cannot be nil")
	}

	api := server.Group(b.routeConfig.BasePath)
	api.Use(b.routeConfig.Middlewares...)
	api.Use(b.middlewares...)

	NewTourRouter(b.tours).Register(api.Group("/tours"))
	if b.users != nil {
		NewUserRouter(b.users).Register(api.Group("/users"))
	}

	server.NotFound(NotFound)
	return nil
}

// NotFound 未知路由
func NotFound(ctx httpx.IHttpContext) error {
	return errors.NewNotFoundError(fmt.Sprintf("Can't find %s on this server", ctx.GetRequest().URL.RequestURI()))
}

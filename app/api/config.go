// Package api 注册 tours 与 users 的 REST 路由
package api

import (
	httpx "natours/http"
)

// DefaultBasePath API 版本前缀
const DefaultBasePath = "/api/v1"

// RouteConfig 路由配置
type RouteConfig struct {
	// 基础路径
	BasePath string

	// 作用于全部 API 路由的中间件
	Middlewares []httpx.Middleware
}

// DefaultRouteConfig 默认路由配置
func DefaultRouteConfig() *RouteConfig {
	return &RouteConfig{BasePath: DefaultBasePath}
}

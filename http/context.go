package http

import "context"

// IResponseWriter 响应写入接口 - 只负责写入响应
type IResponseWriter interface {
	SetStatus(code int)
	SetHeader(key, value string)

	JSON(code int, obj any) error
	String(code int, text string) error
	NoContent(code int) error

	// Written 本次请求是否已写出响应
	Written() bool
}

// IContextStorage 上下文存储接口 - 只负责键值存储
type IContextStorage interface {
	Set(key string, value any)
	Get(key string) (any, bool)
}

// IHttpContext 组合接口
type IHttpContext interface {
	IRequestReader
	IRequestBinder
	IResponseWriter
	IContextStorage

	// Context 请求上下文，携带请求 ID
	Context() context.Context
	SetContext(ctx context.Context)
}

// HttpHandler 处理器函数类型，返回的错误交给服务器统一渲染
type HttpHandler func(ctx IHttpContext) error

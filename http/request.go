// Package http 提供与路由实现无关的 HTTP 接口
package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"natours/logging"
)

// IRequestReader 请求读取接口 - 只负责读取请求数据
type IRequestReader interface {
	GetMethod() string
	GetPath() string
	GetHeader(key string) string
	GetQuery(key string) string
	GetParam(key string) string
	GetQueryParams() url.Values

	// GetRawQuery 未解码的查询串，保留 key[op] 形式
	GetRawQuery() string

	GetBody() ([]byte, error)
	GetRequest() *http.Request

	ClientIP() string
	UserAgent() string
}

// IRequestBinder 请求绑定接口 - 只负责数据绑定
type IRequestBinder interface {
	BindJSON(obj any) error
}

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-Id"

// ExtractRequestID 取请求头中的请求 ID，缺失或过长时生成新的
func ExtractRequestID(r *http.Request) string {
	if r != nil {
		if id := strings.TrimSpace(r.Header.Get(HeaderRequestID)); id != "" && len(id) <= 128 {
			return id
		}
	}
	return uuid.NewString()
}

// WithRequestID 写入请求 ID，日志字段与消息元数据都从这里读取
func WithRequestID(ctx context.Context, id string) context.Context {
	return logging.WithRequestID(ctx, id)
}

// GetRequestID 读取请求 ID
func GetRequestID(ctx context.Context) string {
	return logging.RequestIDFrom(ctx)
}

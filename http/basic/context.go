package basic

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"natours/errors"
	httpx "natours/http"
)

// HttpContext 基于 chi 的请求上下文
type HttpContext struct {
	request *http.Request
	writer  http.ResponseWriter
	status  int
	written bool
	body    []byte
	read    bool
	values  map[string]any
}

var _ httpx.IHttpContext = (*HttpContext)(nil)

func NewHttpContext(w http.ResponseWriter, r *http.Request) *HttpContext {
	return &HttpContext{
		request: r,
		writer:  w,
		status:  http.StatusOK,
		values:  make(map[string]any),
	}
}

func (c *HttpContext) GetMethod() string           { return c.request.Method }
func (c *HttpContext) GetPath() string             { return c.request.URL.Path }
func (c *HttpContext) GetQuery(key string) string  { return c.request.URL.Query().Get(key) }
func (c *HttpContext) GetParam(key string) string  { return chi.URLParam(c.request, key) }
func (c *HttpContext) GetHeader(key string) string { return c.request.Header.Get(key) }
func (c *HttpContext) GetQueryParams() url.Values  { return c.request.URL.Query() }
func (c *HttpContext) GetRawQuery() string         { return c.request.URL.RawQuery }
func (c *HttpContext) GetRequest() *http.Request   { return c.request }
func (c *HttpContext) UserAgent() string           { return c.request.UserAgent() }

// ClientIP 去掉端口的远端地址
func (c *HttpContext) ClientIP() string {
	return clientIP(c.request)
}

// GetBody 读取一次后缓存，超过 MaxBytesReader 上限时返回 400
func (c *HttpContext) GetBody() ([]byte, error) {
	if c.read {
		return c.body, nil
	}
	c.read = true
	if c.request.Body == nil {
		return nil, nil
	}
	defer c.request.Body.Close()
	b, err := io.ReadAll(c.request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.NewError(errors.ErrCodeInvalidInput, "Request body too large")
		}
		return nil, errors.WrapError(err, errors.ErrCodeInvalidInput, "Failed to read request body")
	}
	c.body = b
	return b, nil
}

func (c *HttpContext) BindJSON(obj any) error {
	body, err := c.GetBody()
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.NewError(errors.ErrCodeInvalidInput, "Request body is empty")
	}
	if err := json.Unmarshal(body, obj); err != nil {
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "Invalid JSON body")
	}
	return nil
}

func (c *HttpContext) SetStatus(code int)          { c.status = code }
func (c *HttpContext) SetHeader(key, value string) { c.writer.Header().Set(key, value) }
func (c *HttpContext) Written() bool               { return c.written }

func (c *HttpContext) JSON(code int, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInternal, "failed to serialize JSON")
	}
	c.SetHeader("Content-Type", "application/json; charset=utf-8")
	return c.write(code, data)
}

func (c *HttpContext) String(code int, text string) error {
	c.SetHeader("Content-Type", "text/plain; charset=utf-8")
	return c.write(code, []byte(text))
}

func (c *HttpContext) NoContent(code int) error {
	return c.write(code, nil)
}

func (c *HttpContext) write(code int, data []byte) error {
	c.status = code
	c.writer.WriteHeader(code)
	c.written = true
	if len(data) == 0 {
		return nil
	}
	_, err := c.writer.Write(data)
	return err
}

func (c *HttpContext) Context() context.Context { return c.request.Context() }

func (c *HttpContext) SetContext(ctx context.Context) {
	c.request = c.request.WithContext(ctx)
}

func (c *HttpContext) Set(key string, value any)  { c.values[key] = value }
func (c *HttpContext) Get(key string) (any, bool) { v, ok := c.values[key]; return v, ok }

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package basic

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"natours/cache"
	"natours/errors"
	httpx "natours/http"
	"natours/logging"
)

// MsgTooManyRequests 限流响应
const MsgTooManyRequests = "Too many requests from this IP, please try again later"

// RequestID 读取或生成请求 ID，写回响应头并放入 context
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := httpx.ExtractRequestID(r)
		w.Header().Set(httpx.HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(httpx.WithRequestID(r.Context(), id)))
	})
}

// Recoverer 处理器 panic 时记录堆栈并返回 500
func Recoverer(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error(r.Context(), "panic recovered",
					logging.String("panic", fmt.Sprint(rec)),
					logging.String("stack", string(debug.Stack())))
				writeEnvelope(w, http.StatusInternalServerError, httpx.Fail(http.StatusInternalServerError, MsgSomethingWrong))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger 开发模式的访问日志
func RequestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info(r.Context(), fmt.Sprintf("%s %s %d", r.Method, r.URL.RequestURI(), ww.Status()),
				logging.Duration("elapsed", time.Since(start)),
				logging.Int("bytes", ww.BytesWritten()))
		})
	}
}

// BodyLimit 限制请求体大小
func BodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter 按客户端 IP 的令牌桶，空闲条目随缓存过期回收
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *cache.Cache[string, *rate.Limiter]
}

// NewRateLimiter rps 为每秒补充的令牌数
func NewRateLimiter(rps float64, burst int, idle time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit: rate.Limit(rps),
		burst: burst,
		limiters: cache.New[string, *rate.Limiter](cache.Config{
			Name:    "rate-limiters",
			MaxSize: 10000,
			TTL:     idle,
		}),
	}
}

// Allow 消耗一个令牌
func (l *RateLimiter) Allow(ctx context.Context, key string) bool {
	lim, _ := l.limiters.GetOrLoad(ctx, key, func(context.Context) (*rate.Limiter, error) {
		return rate.NewLimiter(l.limit, l.burst), nil
	})
	return lim.Allow()
}

// Middleware 超出限制返回 429
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.Context(), clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Hour.Seconds())))
			writeEnvelope(w, http.StatusTooManyRequests, httpx.Fail(http.StatusTooManyRequests, MsgTooManyRequests))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Guard 路由级限流，超出限制时返回 429 业务错误
func (l *RateLimiter) Guard(ctx httpx.IHttpContext, next func() error) error {
	if !l.Allow(ctx.Context(), ctx.ClientIP()) {
		ctx.SetHeader("Retry-After", strconv.Itoa(int(time.Hour.Seconds())))
		return errors.NewError(errors.ErrCodeTooManyRequests, MsgTooManyRequests)
	}
	return next()
}

// Metrics 请求计数与耗时，路由标签使用 chi 的路由模板
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

// NewMetrics 在 reg 上注册指标
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "natours",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "natours",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler /metrics 暴露端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

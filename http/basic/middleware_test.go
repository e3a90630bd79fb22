package basic

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpx "natours/http"
	"natours/logging"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httpx.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(httpx.HeaderRequestID, "req-42")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(httpx.HeaderRequestID))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(httpx.HeaderRequestID))
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(logging.NewNoopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Something went wrong"}`, rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(0.0001, 2, time.Hour)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(addr string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1000"))
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1002"))
	// 不同 IP 各自计数
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:1000"))

	assert.True(t, l.Allow(context.Background(), "10.0.0.3"))
}

func TestBodyLimit(t *testing.T) {
	srv := newServer(false)
	srv.UseHTTP(BodyLimit(8))
	srv.POST("/echo", func(ctx httpx.IHttpContext) error {
		body, err := ctx.GetBody()
		if err != nil {
			return err
		}
		return ctx.String(http.StatusOK, string(body))
	})
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "small", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("much too large")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Request body too large")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	srv := newServer(false)
	srv.UseHTTP(m.Middleware)
	srv.GET("/tours/:id", func(ctx httpx.IHttpContext) error { return ctx.NoContent(http.StatusNoContent) })
	srv.Mount("/metrics", m.Handler())
	h := srv.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tours/1", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tours/2", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(out), `natours_http_requests_total{method="GET",route="/tours/{id}",status="204"} 2`)
}

func TestRateLimiter_Guard(t *testing.T) {
	l := NewRateLimiter(0.0001, 1, time.Hour)
	srv := newServer(false)
	api := srv.Group("/api")
	api.Use(l.Guard)
	api.GET("/tours", func(ctx httpx.IHttpContext) error { return ctx.NoContent(http.StatusNoContent) })
	srv.GET("/health", func(ctx httpx.IHttpContext) error { return ctx.NoContent(http.StatusNoContent) })
	h := srv.Handler()

	rec, _ := serve(t, h, http.MethodGet, "/api/tours")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, body := serve(t, h, http.MethodGet, "/api/tours")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, MsgTooManyRequests, body["message"])
	assert.Equal(t, "3600", rec.Header().Get("Retry-After"))

	// 限流只作用于 /api
	rec, _ = serve(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

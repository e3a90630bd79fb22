package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/app/application"
	core "natours/data/db"
	dbbasic "natours/data/db/basic"
	"natours/data/db/migrate"
	ormbasic "natours/data/orm/basic"
	"natours/data/store"
	httpx "natours/http"
	"natours/http/basic"
	"natours/logging"
	"natours/query"
)

func newAPI(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	db, err := dbbasic.New(core.DBConfig{Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.Up(ctx, db))

	var seq atomic.Int64
	next := func() (int64, error) { return seq.Add(1), nil }
	o := ormbasic.New(db)

	cfg := application.DefaultServiceConfig()
	cfg.BcryptCost = 4
	cfg.Logger = logging.NewNoopLogger()
	tours, err := application.NewTourService(store.NewTours(o, store.WithIDGenerator(next)), nil, cfg)
	require.NoError(t, err)
	users := application.NewUserService(store.NewUsers(o, store.WithIDGenerator(next)), cfg)

	srv := basic.NewHTTPServer(httpx.DefaultWebConfig(), logging.NewNoopLogger())
	require.NoError(t, NewApiBuilder(tours, users).Build(srv))
	return srv.Handler()
}

type response struct {
	code int
	body map[string]any
}

func (r response) data(key string) map[string]any {
	return r.body["data"].(map[string]any)[key].(map[string]any)
}

func (r response) list(key string) []any {
	return r.body["data"].(map[string]any)[key].([]any)
}

func call(t *testing.T, h http.Handler, method, target, body string) response {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	out := response{code: rec.Code}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.body), rec.Body.String())
	}
	return out
}

func tourJSON(name string, price int) string {
	return `{"name":"` + name + `","duration":5,"maxGroupSize":25,"difficulty":"easy","price":` +
		strconv.Itoa(price) + `,"summary":"Breathtaking hike","imageCover":"tour-1-cover.jpg"}`
}

// stubTours 只实现列表
type stubTours struct{ TourService }

func (stubTours) List(context.Context, query.Request) ([]map[string]any, error) {
	return nil, nil
}

func TestTours_CRUD(t *testing.T) {
	h := newAPI(t)

	res := call(t, h, http.MethodPost, "/api/v1/tours", tourJSON("The Forest Hiker", 397))
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.Equal(t, "success", res.body["status"])
	created := res.data("tour")
	assert.Equal(t, "the-forest-hiker", created["slug"])
	id := created["id"].(string)

	res = call(t, h, http.MethodGet, "/api/v1/tours/"+id, "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, "The Forest Hiker", res.data("tour")["name"])

	res = call(t, h, http.MethodPatch, "/api/v1/tours/"+id, `{"price":500}`)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	assert.EqualValues(t, 500, res.data("tour")["price"])
	assert.Equal(t, id, res.data("tour")["id"])

	res = call(t, h, http.MethodDelete, "/api/v1/tours/"+id, "")
	assert.Equal(t, http.StatusNoContent, res.code)

	res = call(t, h, http.MethodGet, "/api/v1/tours/"+id, "")
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, map[string]any{"status": "fail", "message": "No tour found with that ID"}, res.body)
}

func TestTours_ListWithQuery(t *testing.T) {
	h := newAPI(t)
	for _, tc := range []struct {
		name  string
		price int
	}{{"Sea Explorer", 497}, {"Forest Hiker", 397}, {"Snow Adventurer", 997}} {
		require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/api/v1/tours", tourJSON(tc.name, tc.price)).code)
	}

	res := call(t, h, http.MethodGet, "/api/v1/tours?price[lt]=900&sort=price&fields=name,price", "")
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.EqualValues(t, 2, res.body["results"])
	items := res.list("tours")
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "Forest Hiker", first["name"])
	assert.NotContains(t, first, "summary")

	res = call(t, h, http.MethodGet, "/api/v1/tours?page=9&limit=10", "")
	assert.Equal(t, http.StatusNotFound, res.code)
}

func TestTours_TopCheap(t *testing.T) {
	h := newAPI(t)
	names := []string{"Alpha Trip", "Beta Trip", "Gamma Trip", "Delta Trip", "Epsilon Trip", "Zeta Trip"}
	for i, n := range names {
		require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/api/v1/tours", tourJSON(n, 100*(i+1))).code)
	}

	res := call(t, h, http.MethodGet, "/api/v1/tours/top-5-cheap?limit=50", "")
	require.Equal(t, http.StatusOK, res.code, res.body)
	items := res.list("tours")
	require.Len(t, items, 5)
	first := items[0].(map[string]any)
	assert.Equal(t, "Alpha Trip", first["name"])
	assert.NotContains(t, first, "duration")
}

func TestTours_Reports(t *testing.T) {
	h := newAPI(t)
	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/api/v1/tours", tourJSON("Forest Hiker", 397)).code)

	res := call(t, h, http.MethodGet, "/api/v1/tours/tour-stats", "")
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Len(t, res.body["data"].(map[string]any)["stats"], 1)

	res = call(t, h, http.MethodGet, "/api/v1/tours/monthly-plan/2021", "")
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Contains(t, res.body["data"], "plan")

	res = call(t, h, http.MethodGet, "/api/v1/tours/monthly-plan/abc", "")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Invalid year: abc", res.body["message"])
}

func TestTours_Errors(t *testing.T) {
	h := newAPI(t)

	res := call(t, h, http.MethodGet, "/api/v1/tours/abc", "")
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, "Invalid id: abc", res.body["message"])

	res = call(t, h, http.MethodPost, "/api/v1/tours", `{"name":"Hi"}`)
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.True(t, strings.HasPrefix(res.body["message"].(string), "Invalid input data. "), res.body["message"])

	require.Equal(t, http.StatusCreated, call(t, h, http.MethodPost, "/api/v1/tours", tourJSON("Forest Hiker", 397)).code)
	res = call(t, h, http.MethodPost, "/api/v1/tours", tourJSON("Forest Hiker", 397))
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Contains(t, res.body["message"], "Duplicate field value")

	res = call(t, h, http.MethodPatch, "/api/v1/tours/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, res.code)
}

func TestUsers_SignupAndCRUD(t *testing.T) {
	h := newAPI(t)

	res := call(t, h, http.MethodPost, "/api/v1/users/signup",
		`{"name":"Jonas","email":"Jonas@Example.com","password":"pass1234","passwordConfirm":"pass1234"}`)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	u := res.data("user")
	assert.Equal(t, "jonas@example.com", u["email"])
	assert.NotContains(t, u, "password")
	id := u["id"].(string)

	res = call(t, h, http.MethodGet, "/api/v1/users", "")
	require.Equal(t, http.StatusOK, res.code)
	assert.EqualValues(t, 1, res.body["results"])

	res = call(t, h, http.MethodPatch, "/api/v1/users/"+id, `{"name":"Jonas S"}`)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, "Jonas S", res.data("user")["name"])

	res = call(t, h, http.MethodDelete, "/api/v1/users/"+id, "")
	assert.Equal(t, http.StatusNoContent, res.code)

	res = call(t, h, http.MethodGet, "/api/v1/users/"+id, "")
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, "No user found with that ID", res.body["message"])
}

func TestNotFound(t *testing.T) {
	h := newAPI(t)
	res := call(t, h, http.MethodGet, "/api/v1/reviews?x=1", "")
	assert.Equal(t, http.StatusNotFound, res.code)
	assert.Equal(t, map[string]any{"status": "fail", "message": "Can't find /api/v1/reviews?x=1 on this server"}, res.body)
}

func TestApiBuilder_Middleware(t *testing.T) {
	var hits int
	srv := basic.NewHTTPServer(httpx.DefaultWebConfig(), logging.NewNoopLogger())
	b := NewApiBuilder(stubTours{}, nil).Middleware(func(ctx httpx.IHttpContext, next func() error) error {
		hits++
		return next()
	})
	require.NoError(t, b.Build(srv))

	res := call(t, srv.Handler(), http.MethodGet, "/api/v1/tours", "")
	assert.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, 1, hits)

	// 未注册 users
	res = call(t, srv.Handler(), http.MethodGet, "/api/v1/users", "")
	assert.Equal(t, http.StatusNotFound, res.code)

	assert.Error(t, NewApiBuilder(nil, nil).Build(srv))
}

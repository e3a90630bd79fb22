package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"natours/domain/entity"
	"natours/domain/tour"
	"natours/domain/user"
	"natours/errors"
	httpx "natours/http"
	"natours/query"
	"natours/validation"
)

// TourService 路由依赖的线路服务
type TourService interface {
	List(ctx context.Context, req query.Request) ([]map[string]any, error)
	Get(ctx context.Context, id int64) (*tour.Tour, error)
	Create(ctx context.Context, t *tour.Tour) (*tour.Tour, error)
	Update(ctx context.Context, id int64, apply func(*tour.Tour) error) (*tour.Tour, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) ([]tour.Stats, error)
	MonthlyPlan(ctx context.Context, year int) ([]tour.MonthlyPlan, error)
}

// UserService 路由依赖的用户服务
type UserService interface {
	Signup(ctx context.Context, in user.Signup) (*user.User, error)
	Create(ctx context.Context, in user.Signup) (*user.User, error)
	List(ctx context.Context, req query.Request) ([]map[string]any, error)
	Get(ctx context.Context, id int64) (*user.User, error)
	Update(ctx context.Context, id int64, p user.Patch) (*user.User, error)
	Delete(ctx context.Context, id int64) error
}

// TourRouter /tours 路由
type TourRouter struct {
	service TourService
}

func NewTourRouter(svc TourService) *TourRouter {
	return &TourRouter{service: svc}
}

// Register 静态路径先于 /:id 注册
func (r *TourRouter) Register(group httpx.IRouteGroup) {
	group.GET("", r.list)
	group.GET("/top-5-cheap", r.topCheap)
	group.GET("/tour-stats", r.stats)
	group.GET("/monthly-plan/:year", r.monthlyPlan)
	group.POST("", r.create)
	group.GET("/:id", r.get)
	group.PATCH("/:id", r.update)
	group.DELETE("/:id", r.delete)
}

func (r *TourRouter) list(ctx httpx.IHttpContext) error {
	req, err := query.ParseQuery(ctx.GetRawQuery())
	if err != nil {
		return err
	}
	return r.respondList(ctx, req)
}

// topCheap 预设覆盖客户端同名参数
func (r *TourRouter) topCheap(ctx httpx.IHttpContext) error {
	req, err := query.ParseQuery(ctx.GetRawQuery())
	if err != nil {
		return err
	}
	return r.respondList(ctx, tour.TopCheap.Apply(req))
}

func (r *TourRouter) respondList(ctx httpx.IHttpContext, req query.Request) error {
	docs, err := r.service.List(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, httpx.List("tours", docs))
}

func (r *TourRouter) stats(ctx httpx.IHttpContext) error {
	stats, err := r.service.Stats(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, httpx.Success("stats", stats))
}

func (r *TourRouter) monthlyPlan(ctx httpx.IHttpContext) error {
	raw := ctx.GetParam("year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		return errors.NewInvalidValueError("year", raw)
	}
	plan, err := r.service.MonthlyPlan(ctx.Context(), year)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, httpx.Success("plan", plan))
}

func (r *TourRouter) get(ctx httpx.IHttpContext) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	t, err := r.service.Get(ctx.Context(), id)
	if err != nil {
		return err
	}
	return writeTour(ctx, http.StatusOK, t)
}

func (r *TourRouter) create(ctx httpx.IHttpContext) error {
	body, err := ctx.GetBody()
	if err != nil {
		return err
	}
	if err := tour.CreateSchema.Validate(body); err != nil {
		return err
	}
	var t tour.Tour
	if err := json.Unmarshal(body, &t); err != nil {
		return err
	}
	created, err := r.service.Create(ctx.Context(), &t)
	if err != nil {
		return err
	}
	return writeTour(ctx, http.StatusCreated, created)
}

// update 只覆盖请求体中出现的字段
func (r *TourRouter) update(ctx httpx.IHttpContext) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	body, err := ctx.GetBody()
	if err != nil {
		return err
	}
	if err := tour.PatchSchema.Validate(body); err != nil {
		return err
	}
	updated, err := r.service.Update(ctx.Context(), id, func(t *tour.Tour) error {
		return json.Unmarshal(body, t)
	})
	if err != nil {
		return err
	}
	return writeTour(ctx, http.StatusCreated, updated)
}

func (r *TourRouter) delete(ctx httpx.IHttpContext) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	if err := r.service.Delete(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func writeTour(ctx httpx.IHttpContext, status int, t *tour.Tour) error {
	doc, err := t.Document(nil)
	if err != nil {
		return err
	}
	return ctx.JSON(status, httpx.Success("tour", doc))
}

// UserRouter /users 路由
type UserRouter struct {
	service UserService
}

func NewUserRouter(svc UserService) *UserRouter {
	return &UserRouter{service: svc}
}

func (r *UserRouter) Register(group httpx.IRouteGroup) {
	group.POST("/signup", r.signup)
	group.GET("", r.list)
	group.POST("", r.create)
	group.GET("/:id", r.get)
	group.PATCH("/:id", r.update)
	group.DELETE("/:id", r.delete)
}

func (r *UserRouter) signup(ctx httpx.IHttpContext) error {
	return r.register(ctx, r.service.Signup)
}

func (r *UserRouter) create(ctx httpx.IHttpContext) error {
	return r.register(ctx, r.service.Create)
}

func (r *UserRouter) register(ctx httpx.IHttpContext, fn func(context.Context, user.Signup) (*user.User, error)) error {
	body, err := ctx.GetBody()
	if err != nil {
		return err
	}
	if err := user.SignupSchema.Validate(body); err != nil {
		return err
	}
	var in user.Signup
	if err := json.Unmarshal(body, &in); err != nil {
		return err
	}
	u, err := fn(ctx.Context(), in)
	if err != nil {
		return err
	}
	return writeUser(ctx, http.StatusCreated, u)
}

func (r *UserRouter) list(ctx httpx.IHttpContext) error {
	req, err := query.ParseQuery(ctx.GetRawQuery())
	if err != nil {
		return err
	}
	docs, err := r.service.List(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, httpx.List("users", docs))
}

func (r *UserRouter) get(ctx httpx.IHttpContext) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	u, err := r.service.Get(ctx.Context(), id)
	if err != nil {
		return err
	}
	return writeUser(ctx, http.StatusOK, u)
}

func (r *UserRouter) update(ctx httpx.IHttpContext) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	body, err := ctx.GetBody()
	if err != nil {
		return err
	}
	if err := user.PatchSchema.Validate(body); err != nil {
		return err
	}
	var p user.Patch
	if err := json.Unmarshal(body, &p); err != nil {
		return err
	}
	u, err := r.service.Update(ctx.Context(), id, p)
	if err != nil {
		return err
	}
	return writeUser(ctx, http.StatusOK, u)
}

func (r *UserRouter) delete(ctx httpx.IHttpContext) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	if err := r.service.Delete(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// writeUser 输出不含密码哈希的文档
func writeUser(ctx httpx.IHttpContext, status int, u *user.User) error {
	doc, err := u.Document(nil)
	if err != nil {
		return err
	}
	return ctx.JSON(status, httpx.Success("user", doc))
}

func parseID(ctx httpx.IHttpContext) (int64, error) {
	raw := ctx.GetParam("id")
	id, ok := entity.ParseID(raw)
	if !ok {
		return 0, validation.ValidateID(0, raw)
	}
	return id, nil
}

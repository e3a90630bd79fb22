package store

import (
	"context"
	"strings"

	"natours/data/orm"
	"natours/data/orm/repo"
	"natours/domain/crud"
	"natours/domain/user"
	"natours/query"
)

// Users 用户存储
type Users struct {
	repo *repo.Repo[user.User, *user.User]
	cfg  config
}

var (
	_ user.IRepository                    = (*Users)(nil)
	_ crud.IRepository[*user.User, int64] = (*Users)(nil)
)

// NewUsers 创建用户存储
func NewUsers(o orm.IOrm, opts ...Option) *Users {
	cfg := newConfig(opts)
	return &Users{
		repo: repo.NewRepo[user.User, *user.User](o, user.User{}.TableName(), cfg.repoOptions(user.NotFoundMessage)...),
		cfg:  cfg,
	}
}

// Create 新增，邮箱重复时返回重复值错误
func (s *Users) Create(ctx context.Context, u *user.User) error {
	return duplicate(s.repo.Create(ctx, u), u.Email)
}

// Get 按 ID 查找
func (s *Users) Get(ctx context.Context, id int64) (*user.User, error) {
	return s.repo.Get(ctx, id)
}

// Update 覆盖写入
func (s *Users) Update(ctx context.Context, u *user.User) error {
	return duplicate(s.repo.Update(ctx, u), u.Email)
}

// Delete 按 ID 删除
func (s *Users) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Find 执行查询特性构建器，password 为隐藏字段，不能参与过滤、排序或投影
func (s *Users) Find(ctx context.Context, req query.Request) ([]*user.User, []string, error) {
	return find[*user.User](ctx, s.repo.NewQuery(), req, s.cfg.query)
}

// FindByEmail 按邮箱查找，邮箱不区分大小写
func (s *Users) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.repo.FindOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

// Count 用户数
func (s *Users) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

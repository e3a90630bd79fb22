package repo

import (
	"context"
	ers "errors"

	"natours/data/orm"
	"natours/errors"
)

// Get 根据 ID 获取，受默认条件约束
func (r *Repo[T, PT]) Get(ctx context.Context, id int64) (PT, error) {
	return r.first(ctx, "get", r.byID(id))
}

// FindOne 按条件取第一条
func (r *Repo[T, PT]) FindOne(ctx context.Context, expr string, args ...any) (PT, error) {
	return r.first(ctx, "find one", r.scope(orm.WithWhere(expr, args...)))
}

func (r *Repo[T, PT]) first(ctx context.Context, op string, opts []orm.QueryOption) (PT, error) {
	entity := PT(new(T))
	err := r.model.First(ctx, entity, opts...)
	switch {
	case err == nil:
		return entity, nil
	case ers.Is(err, orm.ErrNotFound):
		return nil, errors.NewError(errors.ErrCodeNotFound, r.opts.notFound)
	default:
		return nil, errors.WrapDatabaseError(ctx, err, op)
	}
}

// Count 统计总数
func (r *Repo[T, PT]) Count(ctx context.Context) (int64, error) {
	count, err := r.model.Count(ctx, r.scope()...)
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, "count")
	}
	return count, nil
}

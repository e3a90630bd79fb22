package repo

import (
	"context"

	"natours/data/orm"
	"natours/errors"
)

// prepare 补齐 ID 与创建时间
func (r *Repo[T, PT]) prepare(entity PT) error {
	if entity.GetID() == 0 {
		id, err := r.opts.nextID()
		if err != nil {
			return errors.WrapError(err, errors.ErrCodeInternal, "failed to generate id")
		}
		entity.SetID(id)
	}
	entity.Touch()
	return nil
}

// Create 新增
func (r *Repo[T, PT]) Create(ctx context.Context, entity PT) error {
	if err := r.prepare(entity); err != nil {
		return err
	}
	if err := r.model.Create(ctx, entity); err != nil {
		return errors.WrapDatabaseError(ctx, err, "create")
	}
	return nil
}

// Update 按 ID 覆盖全部列，记录不存在或被默认条件排除时返回 NotFound
func (r *Repo[T, PT]) Update(ctx context.Context, entity PT) error {
	n, err := r.model.Save(ctx, entity, r.byID(entity.GetID())...)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "update")
	}
	if n == 0 {
		return errors.NewError(errors.ErrCodeNotFound, r.opts.notFound)
	}
	return nil
}

// Delete 物理删除
func (r *Repo[T, PT]) Delete(ctx context.Context, id int64) error {
	n, err := r.model.Delete(ctx, r.byID(id)...)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "delete")
	}
	if n == 0 {
		return errors.NewError(errors.ErrCodeNotFound, r.opts.notFound)
	}
	return nil
}

// CreateAll 在一个事务中批量插入
func (r *Repo[T, PT]) CreateAll(ctx context.Context, entities []PT) error {
	if len(entities) == 0 {
		return nil
	}
	items := make([]any, len(entities))
	for i, e := range entities {
		if err := r.prepare(e); err != nil {
			return err
		}
		items[i] = e
	}

	session, err := r.orm.Begin(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "begin")
	}
	if err := session.Model(r.model.Meta()).Create(ctx, items...); err != nil {
		_ = session.Rollback()
		return errors.WrapDatabaseError(ctx, err, "create all")
	}
	if err := session.Commit(); err != nil {
		return errors.WrapDatabaseError(ctx, err, "commit")
	}
	return nil
}

// DeleteAll 删除全部记录，不受默认条件约束
func (r *Repo[T, PT]) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.model.Delete(ctx, orm.WithWhere("1 = 1"))
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, "delete all")
	}
	return n, nil
}

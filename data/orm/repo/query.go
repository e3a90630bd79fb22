package repo

import (
	"context"
	"fmt"
	"time"

	"natours/data/orm"
	"natours/errors"
	"natours/logging"
	"natours/query"
)

// Query 基于 orm.IModel 的可组合查询，实现 query.IComposableQuery。
//
// 查询串中的字段名为对外（JSON）名称，经 ModelMeta 映射为列名；
// 隐藏字段与未知字段一律拒绝，列名不会来自用户输入。
type Query[T any, PT interface {
	*T
	Entity
}] struct {
	model  orm.IModel
	meta   *orm.ModelMeta
	logger logging.Logger

	base   []orm.QueryOption
	where  []orm.QueryOption
	order  []orm.QueryOption
	fields []string
	limit  int
	offset int
}

func newQuery[T any, PT interface {
	*T
	Entity
}](model orm.IModel, base []orm.QueryOption, logger logging.Logger) *Query[T, PT] {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Query[T, PT]{
		model:  model,
		meta:   model.Meta(),
		logger: logger,
		base:   append([]orm.QueryOption(nil), base...),
	}
}

// field 查找可对外使用的字段
func (q *Query[T, PT]) field(name string) (orm.FieldMeta, error) {
	f, ok := q.meta.FieldByName(name)
	if !ok || f.Hidden {
		return orm.FieldMeta{}, errors.NewInvalidFieldError(name)
	}
	return f, nil
}

// ApplyFilter 每个条件转换为 "column op ?"
func (q *Query[T, PT]) ApplyFilter(criteria query.Criteria) error {
	for _, c := range criteria {
		f, err := q.field(c.Field)
		if err != nil {
			return err
		}
		if !filterable(f.Type) {
			return errors.NewError(errors.ErrCodeValidation, fmt.Sprintf("Field %s cannot be filtered", c.Field))
		}
		v, err := convertFilterValue(f.Type, c.Value)
		if err != nil {
			return errors.NewInvalidValueError(c.Field, c.Value)
		}
		q.where = append(q.where, orm.WithWhere(fmt.Sprintf("%s %s ?", f.Column, c.Op.SQL()), v))
	}
	return nil
}

// ApplySort 追加 id 升序作为最后的排序键，保证结果稳定
func (q *Query[T, PT]) ApplySort(keys []query.SortKey) error {
	order := make([]orm.QueryOption, 0, len(keys)+1)
	hasID := false
	for _, k := range keys {
		f, err := q.field(k.Field)
		if err != nil {
			return err
		}
		if f.PrimaryKey {
			hasID = true
		}
		order = append(order, orm.WithOrderBy(f.Column, k.Desc))
	}
	if pk, ok := q.meta.PrimaryKey(); ok && !hasID {
		order = append(order, orm.WithOrderBy(pk.Column, false))
	}
	q.order = order
	return nil
}

// SelectFields 解析投影为列
func (q *Query[T, PT]) SelectFields(p query.Projection) error {
	names, err := p.Resolve(q.meta.VisibleNames())
	if err != nil {
		return err
	}
	q.fields = names
	return nil
}

// ApplyOffsetLimit 设置分页
func (q *Query[T, PT]) ApplyOffsetLimit(skip, limit int) {
	q.offset, q.limit = skip, limit
}

// Count 统计匹配过滤条件的记录数
func (q *Query[T, PT]) Count(ctx context.Context) (int64, error) {
	n, err := q.model.Count(ctx, q.filterOptions()...)
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, "count")
	}
	return n, nil
}

// Find 执行查询
func (q *Query[T, PT]) Find(ctx context.Context) ([]PT, error) {
	opts := q.filterOptions()
	opts = append(opts, q.order...)
	if len(q.fields) > 0 {
		cols := make([]string, 0, len(q.fields))
		for _, name := range q.fields {
			f, _ := q.meta.FieldByName(name)
			cols = append(cols, f.Column)
		}
		opts = append(opts, orm.WithSelect(cols...))
	}
	opts = append(opts, orm.WithLimit(q.limit), orm.WithOffset(q.offset))

	start := time.Now()
	var out []PT
	err := q.model.Find(ctx, &out, opts...)
	q.logger.Debug(ctx, "query executed",
		logging.String("table", q.meta.Table),
		logging.Int("rows", len(out)),
		logging.Duration("elapsed", time.Since(start)))
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "find")
	}
	if out == nil {
		out = []PT{}
	}
	return out, nil
}

// Fields 投影后保留的对外字段，未投影时为全部可见字段
func (q *Query[T, PT]) Fields() []string {
	if len(q.fields) > 0 {
		return append([]string(nil), q.fields...)
	}
	return q.meta.VisibleNames()
}

func (q *Query[T, PT]) filterOptions() []orm.QueryOption {
	opts := make([]orm.QueryOption, 0, len(q.base)+len(q.where)+4)
	opts = append(opts, q.base...)
	opts = append(opts, q.where...)
	return opts
}

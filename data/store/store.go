// Package store 线路与用户的记录存储：可组合查询、批量写入与统计报表
package store

import (
	"context"

	"natours/data/orm/repo"
	"natours/domain/crud"
	"natours/errors"
	"natours/logging"
	"natours/query"
)

// Option 存储配置
type Option func(*config)

type config struct {
	query  query.Options
	logger logging.Logger
	nextID func() (int64, error)
}

// WithQueryOptions 替换查询构建器的默认值
func WithQueryOptions(o query.Options) Option {
	return func(c *config) { c.query = o }
}

// WithLogger 设置日志
func WithLogger(l logging.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithIDGenerator 替换记录 ID 生成器，测试用
func WithIDGenerator(next func() (int64, error)) Option {
	return func(c *config) { c.nextID = next }
}

func newConfig(opts []Option) config {
	c := config{query: query.DefaultOptions(), logger: logging.GetLogger()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c config) repoOptions(notFound string) []repo.Option {
	out := []repo.Option{repo.WithNotFoundMessage(notFound), repo.WithLogger(c.logger)}
	if c.nextID != nil {
		out = append(out, repo.WithIDGenerator(c.nextID))
	}
	return out
}

// find 按 filter → sort → fields → paginate 构建并执行
func find[PT any](ctx context.Context, q crud.IQuery[PT], req query.Request, opts query.Options) ([]PT, []string, error) {
	f := query.New(q, req, opts).Apply(ctx)
	if err := f.Err(); err != nil {
		return nil, nil, err
	}
	rows, err := q.Find(ctx)
	if err != nil {
		return nil, nil, err
	}
	return rows, q.Fields(), nil
}

// duplicate 唯一约束冲突时用冲突的取值重写错误信息
func duplicate(err error, value any) error {
	if errors.IsDuplicate(err) {
		return errors.NewDuplicateError(value)
	}
	return err
}

// Package repo 基于 data/orm 的通用仓储与可组合查询
package repo

import (
	"slices"

	"natours/codegen/snowflake"
	dbsql "natours/data/db/sql"
	"natours/data/orm"
	"natours/domain"
	"natours/logging"
)

// Entity 仓储管理的实体须满足的约束
type Entity interface {
	domain.IEntity[int64]
	SetID(id int64)
	Touch()
}

// Option 仓储配置
type Option func(*options)

type options struct {
	notFound string
	defaults []orm.QueryOption
	nextID   func() (int64, error)
	logger   logging.Logger
}

// WithNotFoundMessage 按 ID 查找失败时返回给客户端的信息
func WithNotFoundMessage(msg string) Option {
	return func(o *options) { o.notFound = msg }
}

// WithDefaultWhere 追加对所有读取、按 ID 更新和删除生效的默认条件
func WithDefaultWhere(expr string, args ...any) Option {
	return func(o *options) { o.defaults = append(o.defaults, orm.WithWhere(expr, args...)) }
}

// WithIDGenerator 替换默认的雪花 ID 生成器
func WithIDGenerator(next func() (int64, error)) Option {
	return func(o *options) { o.nextID = next }
}

// WithLogger 设置日志
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Repo 基于 orm.IModel 的通用仓储，T 为实体结构体，PT 为其指针。
type Repo[T any, PT interface {
	*T
	Entity
}] struct {
	orm   orm.IOrm
	model orm.IModel
	opts  options
}

// NewRepo 创建基础仓储实例，字段映射从 T 的结构体标签生成。
func NewRepo[T any, PT interface {
	*T
	Entity
}](ormEngine orm.IOrm, tableName string, opts ...Option) *Repo[T, PT] {
	o := options{
		notFound: "Record not found",
		nextID:   snowflake.NextID,
		logger:   logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	meta := orm.NewModelMeta(new(T), tableName)
	return &Repo[T, PT]{
		orm:   ormEngine,
		model: ormEngine.Model(meta),
		opts:  o,
	}
}

// WithOrm 返回绑定到另一个 ORM 会话（通常是事务）的仓储副本。
func (r *Repo[T, PT]) WithOrm(o orm.IOrm) *Repo[T, PT] {
	return &Repo[T, PT]{
		orm:   o,
		model: o.Model(r.model.Meta()),
		opts:  r.opts,
	}
}

// scope 默认条件加上 extra，返回新切片
func (r *Repo[T, PT]) scope(extra ...orm.QueryOption) []orm.QueryOption {
	return append(slices.Clone(r.opts.defaults), extra...)
}

func (r *Repo[T, PT]) byID(id int64) []orm.QueryOption {
	return r.scope(orm.WithWhere("id = ?", id))
}

// NewQuery 创建带默认条件、尚未执行的查询
func (r *Repo[T, PT]) NewQuery() *Query[T, PT] {
	return newQuery[T, PT](r.model, r.opts.defaults, r.opts.logger)
}

// Model 暴露底层模型
func (r *Repo[T, PT]) Model() orm.IModel { return r.model }

// Meta 模型元信息
func (r *Repo[T, PT]) Meta() *orm.ModelMeta { return r.model.Meta() }

// Orm 返回绑定的 ORM 引擎。
func (r *Repo[T, PT]) Orm() orm.IOrm { return r.orm }

// Sql 绑定同一连接的语句构建器，用于聚合等 ORM 不覆盖的查询
func (r *Repo[T, PT]) Sql() dbsql.ISql { return dbsql.New(r.orm.Database()) }

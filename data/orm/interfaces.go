// Package orm 定义轻量 ORM 的接口与模型元信息
package orm

import (
	"context"
	"database/sql"

	"natours/data/db"
)

// IOrm 表示 ORM 适配器入口。
type IOrm interface {
	// Model 返回指定模型的操作入口。
	Model(meta *ModelMeta) IModel
	// Begin 开启事务会话。
	Begin(ctx context.Context) (IOrmSession, error)
	// BeginTx 开启带选项的事务会话。
	BeginTx(ctx context.Context, opts *sql.TxOptions) (IOrmSession, error)
	// Database 返回适配器绑定的数据库。
	Database() db.IDatabase
}

// IOrmSession 表示事务会话。
type IOrmSession interface {
	IOrm
	Commit() error
	Rollback() error
}

// IModel 封装模型级别的基础操作。
type IModel interface {
	Meta() *ModelMeta

	// First 查询单条记录，没有匹配时返回 ErrNotFound。
	First(ctx context.Context, dest any, opts ...QueryOption) error
	Find(ctx context.Context, dest any, opts ...QueryOption) error
	Count(ctx context.Context, opts ...QueryOption) (int64, error)

	Create(ctx context.Context, entities ...any) error
	// Save 根据 QueryOptions 更新实体的全部非主键列，返回受影响行数。
	Save(ctx context.Context, entity any, opts ...QueryOption) (int64, error)
	// Delete 必须带条件，删除全部须显式传入 "1 = 1"；返回受影响行数。
	Delete(ctx context.Context, opts ...QueryOption) (int64, error)
}

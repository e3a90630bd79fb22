// Package crud 提供面向简单 CRUD 场景的仓储抽象
package crud

import (
	"context"

	"natours/domain"
	"natours/query"
)

// IRepository 简单 CRUD 仓储接口
type IRepository[T domain.IEntity[ID], ID comparable] interface {
	// Create 创建实体，ID 为零值时由仓储生成
	Create(ctx context.Context, e T) error

	// Update 按 ID 更新实体
	Update(ctx context.Context, e T) error

	// Delete 物理删除实体，不存在时返回 NotFound
	Delete(ctx context.Context, id ID) error

	// Get 通过 ID 获取实体，不存在时返回 NotFound
	Get(ctx context.Context, id ID) (T, error)

	// Count 统计总数
	Count(ctx context.Context) (int64, error)
}

// IQuery 可组合且可执行的查询
type IQuery[T any] interface {
	query.IComposableQuery

	// Find 执行查询
	Find(ctx context.Context) ([]T, error)

	// Fields 投影后保留的 API 字段，未投影时为全部可见字段
	Fields() []string
}

// IBatchOperations 批量操作（可选扩展），实现应在单个事务中完成
type IBatchOperations[T domain.IEntity[ID], ID comparable] interface {
	// CreateAll 批量创建实体
	CreateAll(ctx context.Context, entities []T) error

	// DeleteAll 删除全部实体，返回删除条数
	DeleteAll(ctx context.Context) (int64, error)
}

// Package entity 记录型实体的公共字段与可持久化的值类型
package entity

import "strconv"

// Entity 嵌入到具体实体中的公共字段
//
// ID 为雪花 ID，JSON 中以字符串输出以免 JavaScript 客户端丢失精度；
// Version 对应 __v，默认不出现在查询结果中。
type Entity struct {
	ID        int64 `json:"id,string" db:"id"`
	CreatedAt Time  `json:"createdAt" db:"created_at"`
	Version   int64 `json:"__v" db:"version"`
}

// GetID 实现 domain.IObject
func (e *Entity) GetID() int64 {
	return e.ID
}

// SetID 由仓储在插入前调用
func (e *Entity) SetID(id int64) {
	e.ID = id
}

// GetVersion 实现 domain.IEntity
func (e *Entity) GetVersion() int64 {
	return e.Version
}

// Touch 补齐创建时间
func (e *Entity) Touch() {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = Now()
	}
}

// ParseID 解析路径中的 ID，失败返回 false
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

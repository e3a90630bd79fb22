// Package user 用户实体、注册校验与密码哈希
package user

import (
	"context"
	"strings"

	"natours/domain/entity"
	"natours/query"
)

// NotFoundMessage 按 ID 查找失败时的信息
const NotFoundMessage = "No user found with that ID"

// User 用户，密码只保存哈希且从不输出
type User struct {
	entity.Entity
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
	Photo    string `json:"photo,omitempty" db:"photo"`
	Password string `json:"-" db:"password"`
}

// TableName 表名
func (User) TableName() string { return "users" }

// Normalize 去除空白，邮箱转小写
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Photo = strings.TrimSpace(u.Photo)
}

// Document 输出文档，按 fields 裁剪
func (u *User) Document(fields []string) (map[string]any, error) {
	doc, err := query.ToDocument(u)
	if err != nil {
		return nil, err
	}
	return query.Shape(doc, fields), nil
}

// Signup 注册或创建用户的请求体
type Signup struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Photo           string `json:"photo"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// NewUser 校验注册信息并生成带密码哈希的用户
func (s Signup) NewUser(h *Hasher) (*User, error) {
	u := &User{Name: s.Name, Email: s.Email, Photo: s.Photo}
	u.Normalize()
	if err := s.validate(u); err != nil {
		return nil, err
	}
	hash, err := h.Hash(s.Password)
	if err != nil {
		return nil, err
	}
	u.Password = hash
	return u, nil
}

// Patch 部分更新，不允许修改密码
type Patch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Photo *string `json:"photo"`
}

// Apply 应用到 u 并重新校验
func (p Patch) Apply(u *User) error {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Photo != nil {
		u.Photo = *p.Photo
	}
	u.Normalize()
	return u.Validate()
}

// IRepository 用户存储
type IRepository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
	Find(ctx context.Context, req query.Request) ([]*User, []string, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

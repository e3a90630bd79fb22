package user

import (
	"golang.org/x/crypto/bcrypt"

	"natours/errors"
)

// DefaultCost 密码哈希强度
const DefaultCost = 12

// Hasher bcrypt 密码哈希
type Hasher struct {
	cost int
}

// NewHasher cost 超出 bcrypt 范围时使用 DefaultCost
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash 生成哈希
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrCodeInvalidInput, "Invalid password")
	}
	return string(b), nil
}

// Compare 校验明文与哈希是否匹配
func (h *Hasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

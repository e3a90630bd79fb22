// Package validation 实体校验工具：逐条收集失败信息，最后合并为一个校验错误
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"natours/errors"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	alphaRegex = regexp.MustCompile(`^[A-Za-z]+$`)
)

// IValidator 定义通用验证器接口
type IValidator interface {
	Validate(value any) error
}

// Collector 收集校验失败信息，保持添加顺序
type Collector struct {
	messages []string
}

// Add 无条件添加一条信息
func (c *Collector) Add(msg string) {
	c.messages = append(c.messages, msg)
}

// Check ok 为 false 时添加 msg
func (c *Collector) Check(ok bool, msg string) bool {
	if !ok {
		c.Add(msg)
	}
	return ok
}

// Required 去除首尾空白后不能为空
func (c *Collector) Required(value, msg string) bool {
	return c.Check(strings.TrimSpace(value) != "", msg)
}

// Length 字符数在 [min, max] 内，max 为 0 表示不限制
func (c *Collector) Length(value string, min, max int, minMsg, maxMsg string) bool {
	n := utf8.RuneCountInString(value)
	if n < min {
		c.Add(minMsg)
		return false
	}
	if max > 0 && n > max {
		c.Add(maxMsg)
		return false
	}
	return true
}

// Range 数值在 [min, max] 内
func (c *Collector) Range(value, min, max float64, minMsg, maxMsg string) bool {
	if value < min {
		c.Add(minMsg)
		return false
	}
	if value > max {
		c.Add(maxMsg)
		return false
	}
	return true
}

// Enum 值必须是 valid 之一
func (c *Collector) Enum(value string, valid []string, msg string) bool {
	for _, v := range valid {
		if value == v {
			return true
		}
	}
	c.Add(msg)
	return false
}

// Email 邮箱格式
func (c *Collector) Email(value, msg string) bool {
	return c.Check(emailRegex.MatchString(value), msg)
}

// Messages 已收集的信息
func (c *Collector) Messages() []string {
	return append([]string(nil), c.messages...)
}

// Err 没有失败时返回 nil
func (c *Collector) Err() error {
	if len(c.messages) == 0 {
		return nil
	}
	return errors.NewValidationError(c.messages...)
}

// IsAlphaWords 去掉空格后只包含 ASCII 字母
func IsAlphaWords(value string) bool {
	return alphaRegex.MatchString(strings.ReplaceAll(value, " ", ""))
}

// ValidateID 验证ID有效性
func ValidateID(id int64, raw string) error {
	if id <= 0 {
		return errors.NewInvalidValueError("id", raw)
	}
	return nil
}

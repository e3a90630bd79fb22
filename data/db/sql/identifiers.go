package sql

import (
	"fmt"
	"strings"
)

// ErrUnsafeIdentifier 表名或列名包含非法字符
var ErrUnsafeIdentifier = fmt.Errorf("unsafe identifier")

// isSafeIdentifier 每段须匹配 [A-Za-z_][A-Za-z0-9_]*，段之间以点分隔
func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			ch := part[i]
			letter := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
			digit := ch >= '0' && ch <= '9'
			if !letter && !(i > 0 && digit) {
				return false
			}
		}
	}
	return true
}

func quoteSafe(quote func(string) string, name string) (string, error) {
	if !isSafeIdentifier(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeIdentifier, name)
	}
	return quote(name), nil
}

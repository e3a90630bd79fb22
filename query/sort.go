package query

import (
	"strings"

	"natours/errors"
)

// SortKey 排序键
type SortKey struct {
	Field string
	Desc  bool
}

// ParseSort 解析 "-price,ratingsAverage"
func ParseSort(spec string) ([]SortKey, error) {
	var keys []SortKey
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		field := strings.TrimLeft(part, "-+")
		if field == "" {
			return nil, errors.NewInvalidValueError("sort", spec)
		}
		keys = append(keys, SortKey{Field: field, Desc: desc})
	}
	if len(keys) == 0 {
		return nil, errors.NewInvalidValueError("sort", spec)
	}
	return keys, nil
}

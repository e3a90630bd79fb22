package query

import (
	"strings"

	"natours/errors"
)

// IdentityField 任何投影都保留的字段
const IdentityField = "id"

// Projection 字段选择：包含模式或排除模式，不能混用
type Projection struct {
	Fields  []string
	Exclude bool
}

// ParseFields 解析 "name,price" 或 "-__v,-summary"
func ParseFields(spec string) (Projection, error) {
	var (
		p             Projection
		include, excl int
	)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "-") {
			excl++
			part = strings.TrimPrefix(part, "-")
		} else {
			include++
		}
		if part == "" {
			return Projection{}, errors.NewInvalidValueError("fields", spec)
		}
		p.Fields = append(p.Fields, part)
	}
	if include > 0 && excl > 0 {
		return Projection{}, errors.NewValidationError("Projection cannot mix inclusion and exclusion")
	}
	if len(p.Fields) == 0 {
		return Projection{}, errors.NewInvalidValueError("fields", spec)
	}
	p.Exclude = excl > 0
	return p, nil
}

// Resolve 按 available 的顺序返回最终保留的字段。
// 包含模式总是带上 id；排除模式下 id 不会被排除。
func (p Projection) Resolve(available []string) ([]string, error) {
	known := make(map[string]struct{}, len(available))
	for _, name := range available {
		known[name] = struct{}{}
	}
	named := make(map[string]struct{}, len(p.Fields))
	for _, f := range p.Fields {
		if _, ok := known[f]; !ok {
			return nil, errors.NewInvalidFieldError(f)
		}
		named[f] = struct{}{}
	}

	out := make([]string, 0, len(available))
	for _, name := range available {
		_, hit := named[name]
		switch {
		case name == IdentityField:
			out = append(out, name)
		case p.Exclude && !hit, !p.Exclude && hit:
			out = append(out, name)
		}
	}
	return out, nil
}

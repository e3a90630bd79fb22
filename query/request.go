// Package query 将 HTTP 查询串转换为存储层查询：过滤、排序、字段选择、分页，按固定顺序执行。
package query

import (
	"net/url"
	"sort"
	"strings"
)

// 控制参数，由构建器消费，不参与过滤
const (
	KeyPage   = "page"
	KeySort   = "sort"
	KeyLimit  = "limit"
	KeyFields = "fields"
)

var controlKeys = map[string]struct{}{
	KeyPage:   {},
	KeySort:   {},
	KeyLimit:  {},
	KeyFields: {},
}

// IsControlKey 是否为控制参数
func IsControlKey(key string) bool {
	_, ok := controlKeys[key]
	return ok
}

// Param 单个查询键的取值：price=500 存在 Values，price[gte]=100 存在 Ops
type Param struct {
	Values []string
	Ops    map[string]string
}

// Last 返回最后一个普通取值
func (p *Param) Last() (string, bool) {
	if p == nil || len(p.Values) == 0 {
		return "", false
	}
	return p.Values[len(p.Values)-1], true
}

// Request 查询请求，键为字段名或控制参数
type Request map[string]*Param

// ParseValues 解析 url.Values，支持 field[op]=value 形式
func ParseValues(values url.Values) Request {
	req := make(Request, len(values))
	for rawKey, vals := range values {
		key, op, nested := splitBracket(rawKey)
		p := req[key]
		if p == nil {
			p = &Param{}
			req[key] = p
		}
		if !nested {
			p.Values = append(p.Values, vals...)
			continue
		}
		if len(vals) == 0 {
			continue
		}
		if p.Ops == nil {
			p.Ops = make(map[string]string)
		}
		p.Ops[op] = vals[len(vals)-1]
	}
	return req
}

// ParseQuery 解析原始查询串
func ParseQuery(raw string) (Request, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	return ParseValues(values), nil
}

// splitBracket "price[gte]" -> ("price", "gte", true)
func splitBracket(key string) (string, string, bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, "", false
	}
	op := key[open+1 : len(key)-1]
	if op == "" || strings.ContainsAny(op, "[]") {
		return key, "", false
	}
	return key[:open], op, true
}

// Get 读取普通取值（取最后一个）
func (r Request) Get(key string) (string, bool) {
	return r[key].Last()
}

// Set 覆盖普通取值
func (r Request) Set(key, value string) {
	r[key] = &Param{Values: []string{value}}
}

// Clone 深拷贝
func (r Request) Clone() Request {
	out := make(Request, len(r))
	for k, p := range r {
		if p == nil {
			continue
		}
		cp := &Param{Values: append([]string(nil), p.Values...)}
		if p.Ops != nil {
			cp.Ops = make(map[string]string, len(p.Ops))
			for op, v := range p.Ops {
				cp.Ops[op] = v
			}
		}
		out[k] = cp
	}
	return out
}

// FilterKeys 去除控制参数后的键，按字典序
func (r Request) FilterKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if !IsControlKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Preset 预置的控制参数，覆盖请求中的同名参数
type Preset map[string]string

// Apply 返回应用预置后的新请求
func (p Preset) Apply(req Request) Request {
	out := req.Clone()
	for k, v := range p {
		out.Set(k, v)
	}
	return out
}

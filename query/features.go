package query

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"natours/errors"
)

// IComposableQuery 尚未执行的查询句柄
type IComposableQuery interface {
	ApplyFilter(criteria Criteria) error
	ApplySort(keys []SortKey) error
	SelectFields(p Projection) error
	ApplyOffsetLimit(skip, limit int)
	// Count 统计已应用过滤条件的记录数，忽略排序与分页
	Count(ctx context.Context) (int64, error)
}

// Options 构建器默认值
type Options struct {
	DefaultSort    string
	DefaultExclude []string
	DefaultLimit   int
	// MaxLimit 0 表示不限制
	MaxLimit int
}

// DefaultOptions 按创建时间倒序、隐藏 __v、每页 100 条
func DefaultOptions() Options {
	return Options{
		DefaultSort:    "-createdAt",
		DefaultExclude: []string{"__v"},
		DefaultLimit:   100,
	}
}

// ErrPageNotFound 请求的页超出结果集
var ErrPageNotFound = errors.NewError(errors.ErrCodeNotFound, "This page does not exist")

type stage int

const (
	stageNew stage = iota
	stageFilter
	stageSort
	stageFields
	stagePaginate
)

func (s stage) String() string {
	switch s {
	case stageFilter:
		return "filter"
	case stageSort:
		return "sort"
	case stageFields:
		return "limitFields"
	case stagePaginate:
		return "paginate"
	default:
		return "new"
	}
}

// Features 查询特性构建器，每个请求创建一个，不跨请求复用。
//
// 步骤必须按 Filter → Sort → LimitFields → Paginate 的顺序调用，
// 可以跳过某一步，但不能回退或重复。出错后后续步骤不再执行，错误由 Err 返回。
type Features struct {
	query   IComposableQuery
	request Request
	opts    Options

	stage stage
	err   error

	page, limit, skip int
}

// New 创建构建器
func New(q IComposableQuery, req Request, opts ...Options) *Features {
	o := DefaultOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 100
	}
	if req == nil {
		req = Request{}
	}
	return &Features{query: q, request: req, opts: o}
}

// advance 检查步骤顺序
func (f *Features) advance(next stage) bool {
	if f.err != nil {
		return false
	}
	if next <= f.stage {
		f.err = errors.NewError(errors.ErrCodeInternal,
			fmt.Sprintf("query step %s called after %s", next, f.stage))
		return false
	}
	f.stage = next
	return true
}

// Filter 去除控制参数，改写比较操作符后作为过滤条件
func (f *Features) Filter() *Features {
	if !f.advance(stageFilter) {
		return f
	}
	criteria, err := BuildCriteria(f.request)
	if err != nil {
		f.err = err
		return f
	}
	if len(criteria) == 0 {
		return f
	}
	f.err = f.query.ApplyFilter(criteria)
	return f
}

// Sort 按 sort 参数排序，缺省为创建时间倒序
func (f *Features) Sort() *Features {
	if !f.advance(stageSort) {
		return f
	}
	spec, ok := f.request.Get(KeySort)
	if !ok || spec == "" {
		spec = f.opts.DefaultSort
	}
	if spec == "" {
		return f
	}
	keys, err := ParseSort(spec)
	if err != nil {
		f.err = err
		return f
	}
	f.err = f.query.ApplySort(keys)
	return f
}

// LimitFields 按 fields 参数选择字段，缺省排除内部版本字段
func (f *Features) LimitFields() *Features {
	if !f.advance(stageFields) {
		return f
	}
	var p Projection
	if spec, ok := f.request.Get(KeyFields); ok && spec != "" {
		parsed, err := ParseFields(spec)
		if err != nil {
			f.err = err
			return f
		}
		p = parsed
	} else {
		if len(f.opts.DefaultExclude) == 0 {
			return f
		}
		p = Projection{Fields: append([]string(nil), f.opts.DefaultExclude...), Exclude: true}
	}
	f.err = f.query.SelectFields(p)
	return f
}

// Paginate skip = (page-1)*limit；显式给出 page 且 skip 不小于匹配总数时返回 ErrPageNotFound
func (f *Features) Paginate(ctx context.Context) *Features {
	if !f.advance(stagePaginate) {
		return f
	}

	page, pageGiven, err := positiveInt(f.request, KeyPage, 1)
	if err != nil {
		f.err = err
		return f
	}
	limit, _, err := positiveInt(f.request, KeyLimit, f.opts.DefaultLimit)
	if err != nil {
		f.err = err
		return f
	}
	if f.opts.MaxLimit > 0 && limit > f.opts.MaxLimit {
		limit = f.opts.MaxLimit
	}

	// skip 溢出 int 时该页必然不存在
	if page-1 > math.MaxInt/limit {
		f.err = ErrPageNotFound
		return f
	}
	skip := (page - 1) * limit
	if pageGiven {
		total, err := f.query.Count(ctx)
		if err != nil {
			f.err = err
			return f
		}
		if int64(skip) >= total {
			f.err = ErrPageNotFound
			return f
		}
	}

	f.page, f.limit, f.skip = page, limit, skip
	f.query.ApplyOffsetLimit(skip, limit)
	return f
}

// Apply 依次执行全部四个步骤
func (f *Features) Apply(ctx context.Context) *Features {
	return f.Filter().Sort().LimitFields().Paginate(ctx)
}

// Err 第一个失败步骤的错误
func (f *Features) Err() error {
	return f.err
}

// Query 交出查询句柄，调用方负责执行
func (f *Features) Query() (IComposableQuery, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.query, nil
}

// Page 当前页，未分页时为 0
func (f *Features) Page() int { return f.page }

// Limit 每页条数，未分页时为 0
func (f *Features) Limit() int { return f.limit }

// Skip 跳过条数
func (f *Features) Skip() int { return f.skip }

func positiveInt(req Request, key string, def int) (int, bool, error) {
	raw, ok := req.Get(key)
	if !ok || raw == "" {
		return def, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, true, errors.NewInvalidValueError(key, raw)
	}
	return n, true, nil
}

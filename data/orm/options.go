package orm

// Condition WHERE 子句片段，Expr 使用 ? 占位
type Condition struct {
	Expr string
	Args []any
}

// OrderBy 单个排序键
type OrderBy struct {
	Column string
	Desc   bool
}

// QueryOptions 由 QueryOption 累积而成，适配器据此生成 SQL。
// Limit/Offset 为 0 表示不限制
type QueryOptions struct {
	Where   []Condition
	OrderBy []OrderBy
	Limit   int
	Offset  int
	Select  []string
}

// QueryOption 修改 QueryOptions；空参数的 option 不产生任何效果
type QueryOption func(*QueryOptions)

func WithWhere(expr string, args ...any) QueryOption {
	if expr == "" {
		return nil
	}
	c := Condition{Expr: expr, Args: args}
	return func(o *QueryOptions) { o.Where = append(o.Where, c) }
}

func WithOrderBy(column string, desc bool) QueryOption {
	if column == "" {
		return nil
	}
	k := OrderBy{Column: column, Desc: desc}
	return func(o *QueryOptions) { o.OrderBy = append(o.OrderBy, k) }
}

// WithLimit 非正数忽略
func WithLimit(n int) QueryOption {
	if n <= 0 {
		return nil
	}
	return func(o *QueryOptions) { o.Limit = n }
}

// WithOffset 非正数忽略
func WithOffset(n int) QueryOption {
	if n <= 0 {
		return nil
	}
	return func(o *QueryOptions) { o.Offset = n }
}

// WithSelect 限定返回列，适配器负责转义
func WithSelect(columns ...string) QueryOption {
	if len(columns) == 0 {
		return nil
	}
	return func(o *QueryOptions) { o.Select = append(o.Select, columns...) }
}

// CollectQueryOptions 依次应用 options，nil 跳过
func CollectQueryOptions(options ...QueryOption) QueryOptions {
	var qo QueryOptions
	for _, apply := range options {
		if apply != nil {
			apply(&qo)
		}
	}
	return qo
}

package sql

import (
	"context"
	"strings"

	core "natours/data/db"
	"natours/data/db/dialect"
)

type selectBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	cols       []string
	table      string
	where      []string
	args       []any
	groupBy    []string
	having     []string
	havingArgs []any
	orderBy    []string
	limit      int
	offset     int
}

func (b *selectBuilder) From(table string) ISelectBuilder {
	b.table = table
	return b
}

// Columns 替换选择列；列可以是表达式（如 COUNT(*)），不做转义
func (b *selectBuilder) Columns(cols ...string) ISelectBuilder {
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	b.cols = append([]string(nil), cols...)
	return b
}

func (b *selectBuilder) Where(cond string, args ...any) ISelectBuilder {
	if cond != "" {
		b.where = append(b.where, cond)
		b.args = append(b.args, args...)
	}
	return b
}

func (b *selectBuilder) And(cond string, args ...any) ISelectBuilder {
	return b.Where(cond, args...)
}

// Or 与上一个条件组成 (a OR b)
func (b *selectBuilder) Or(cond string, args ...any) ISelectBuilder {
	if cond == "" {
		return b
	}
	if len(b.where) == 0 {
		return b.Where(cond, args...)
	}
	last := len(b.where) - 1
	b.where[last] = "(" + b.where[last] + " OR " + cond + ")"
	b.args = append(b.args, args...)
	return b
}

func (b *selectBuilder) GroupBy(cols ...string) ISelectBuilder {
	b.groupBy = append(b.groupBy, cols...)
	return b
}

func (b *selectBuilder) Having(cond string, args ...any) ISelectBuilder {
	if cond != "" {
		b.having = append(b.having, cond)
		b.havingArgs = append(b.havingArgs, args...)
	}
	return b
}

func (b *selectBuilder) OrderBy(exprs ...string) ISelectBuilder {
	b.orderBy = b.orderBy[:0]
	for _, e := range exprs {
		if e != "" {
			b.orderBy = append(b.orderBy, e)
		}
	}
	return b
}

func (b *selectBuilder) Limit(n int) ISelectBuilder {
	b.limit = n
	return b
}

func (b *selectBuilder) Offset(n int) ISelectBuilder {
	b.offset = n
	return b
}

func (b *selectBuilder) Clone() ISelectBuilder {
	c := *b
	c.cols = append([]string(nil), b.cols...)
	c.where = append([]string(nil), b.where...)
	c.args = append([]any(nil), b.args...)
	c.groupBy = append([]string(nil), b.groupBy...)
	c.having = append([]string(nil), b.having...)
	c.havingArgs = append([]any(nil), b.havingArgs...)
	c.orderBy = append([]string(nil), b.orderBy...)
	return &c
}

func (b *selectBuilder) Build() (string, []any, error) {
	table, err := quoteSafe(b.dialect.QuoteIdentifier, b.table)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	args := make([]any, 0, len(b.args)+len(b.havingArgs)+2)

	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(b.cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(table)

	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
		args = append(args, b.args...)
	}
	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}
	if len(b.having) > 0 {
		sb.WriteString(" HAVING ")
		sb.WriteString(strings.Join(b.having, " AND "))
		args = append(args, b.havingArgs...)
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	switch {
	case b.limit > 0:
		sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	case b.offset > 0:
		// sqlite 的 OFFSET 必须跟在 LIMIT 之后
		sb.WriteString(" LIMIT -1")
	}
	if b.offset > 0 {
		sb.WriteString(" OFFSET ?")
		args = append(args, b.offset)
	}
	return sb.String(), args, nil
}

func (b *selectBuilder) Query(ctx context.Context) (core.IRows, error) {
	q, args, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.db.Query(ctx, q, args...)
}

func (b *selectBuilder) QueryRow(ctx context.Context) core.IRow {
	q, args, err := b.Build()
	if err != nil {
		return errRow{err: err}
	}
	return b.db.QueryRow(ctx, q, args...)
}

// errRow 构建失败时返回的行，Scan 直接返回构建错误
type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }
func (r errRow) Err() error             { return r.err }

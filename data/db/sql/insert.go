package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	core "natours/data/db"
	"natours/data/db/dialect"
)

type insertBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table   string
	columns []string
	rows    [][]any
}

func (b *insertBuilder) Columns(cols ...string) IInsertBuilder {
	b.columns = cols
	return b
}

// Values 追加一行，多次调用生成多行 INSERT
func (b *insertBuilder) Values(vals ...any) IInsertBuilder {
	if len(vals) > 0 {
		b.rows = append(b.rows, vals)
	}
	return b
}

func (b *insertBuilder) Build() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, fmt.Errorf("insert into %s: no columns", b.table)
	}
	if len(b.rows) == 0 {
		return "", nil, fmt.Errorf("insert into %s: no rows", b.table)
	}
	table, err := quoteSafe(b.dialect.QuoteIdentifier, b.table)
	if err != nil {
		return "", nil, err
	}
	quoted := make([]string, len(b.columns))
	for i, col := range b.columns {
		if quoted[i], err = quoteSafe(b.dialect.QuoteIdentifier, col); err != nil {
			return "", nil, err
		}
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(b.columns)), ", ") + ")"
	var sb strings.Builder
	args := make([]any, 0, len(b.rows)*len(b.columns))
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES ")
	for i, row := range b.rows {
		if len(row) != len(b.columns) {
			return "", nil, fmt.Errorf("insert into %s: row %d has %d values, want %d", b.table, i, len(row), len(b.columns))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(placeholders)
		args = append(args, row...)
	}
	return sb.String(), args, nil
}

func (b *insertBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.db.Exec(ctx, q, args...)
}

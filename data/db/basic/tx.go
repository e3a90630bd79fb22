package basic

import (
	"context"
	"database/sql"
	"errors"

	core "natours/data/db"
	"natours/data/db/dialect"
)

// ErrNestedTx 事务内再次 Begin
var ErrNestedTx = errors.New("basic: nested transactions are not supported")

// conn *sql.DB 与 *sql.Tx 共有的方法
type conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// executor 执行前按方言改写占位符
type executor struct {
	c       conn
	dialect dialect.Dialect
}

func (e executor) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	rows, err := e.c.QueryContext(ctx, e.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (e executor) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	return &Row{row: e.c.QueryRowContext(ctx, e.dialect.Rebind(query), args...)}
}

func (e executor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return e.c.ExecContext(ctx, e.dialect.Rebind(query), args...)
}

// Tx 同时满足 core.IDatabase，可以直接交给只接受 IDatabase 的组件
type Tx struct {
	executor
	db *sql.DB
	tx *sql.Tx
}

func (t *Tx) Begin(context.Context) (core.ITransaction, error) { return nil, ErrNestedTx }

func (t *Tx) BeginTx(context.Context, *sql.TxOptions) (core.ITransaction, error) {
	return nil, ErrNestedTx
}

func (t *Tx) Ping(ctx context.Context) error { return t.db.PingContext(ctx) }

// Close 不关闭连接池，事务由 Commit/Rollback 结束
func (t *Tx) Close() error { return nil }
func (t *Tx) Raw() any     { return t.tx }

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

func (t *Tx) GetDialectName() string { return string(t.dialect.Name()) }

// Package db 存储层的数据库抽象，orm、store 与 migrate 只依赖这里的接口。
// 具体连接见 data/db/basic
package db

import (
	"context"
	"database/sql"
	"time"
)

// IDatabase 连接池或事务。SQL 统一使用 ? 占位，由实现按方言改写
type IDatabase interface {
	Query(ctx context.Context, query string, args ...any) (IRows, error)
	QueryRow(ctx context.Context, query string, args ...any) IRow
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	Begin(ctx context.Context) (ITransaction, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (ITransaction, error)

	Ping(ctx context.Context) error
	Close() error

	// Raw 底层 *sql.DB 或 *sql.Tx，golang-migrate 需要
	Raw() any
}

// IDialectNameProvider 可选，实现者能报告自己的方言
type IDialectNameProvider interface {
	GetDialectName() string
}

type ITransaction interface {
	IDatabase
	Commit() error
	Rollback() error
}

type IRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
	Columns() ([]string, error)
}

type IRow interface {
	Scan(dest ...any) error
	Err() error
}

// DBConfig 连接参数，零值字段使用驱动默认
type DBConfig struct {
	Driver   string // 空为 sqlite
	Database string // 文件路径或 DSN，":memory:" 为内存库

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout sqlite 锁等待毫秒数
	BusyTimeout int
}

// RunInTx fn 返回错误或 panic 时回滚，否则提交
func RunInTx(ctx context.Context, database IDatabase, fn func(tx ITransaction) error) error {
	tx, err := database.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return tx.Commit()
}

package basic

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	core "natours/data/db"
	"natours/data/db/dialect"
)

// DB 基于 database/sql 的 IDatabase 实现
type DB struct {
	executor
	db     *sql.DB
	driver string
}

// New 根据 DBConfig 打开数据库并做连通性检查
func New(config core.DBConfig) (*DB, error) {
	driver := config.Driver
	if driver == "" {
		driver = "sqlite"
	}
	dsn := config.Database
	if dsn == "" {
		return nil, fmt.Errorf("basic.New: database is required")
	}

	d := dialect.New(driver)
	if d.Name() == dialect.NameSQLite {
		dsn = sqliteDSN(dsn, config.BusyTimeout)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// 内存库每个连接都是独立的数据库，只能用单连接
	if isMemory(config.Database) {
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{executor: executor{c: db, dialect: d}, db: db, driver: driver}, nil
}

func isMemory(database string) bool {
	return database == ":memory:" || strings.Contains(database, "mode=memory")
}

// sqliteDSN 追加 modernc 驱动的 pragma 参数
func sqliteDSN(dsn string, busyTimeout int) string {
	if busyTimeout <= 0 {
		busyTimeout = 5000
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if isMemory(dsn) && !strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", dsn, sep, busyTimeout)
}

func (d *DB) Begin(ctx context.Context) (core.ITransaction, error) {
	return d.BeginTx(ctx, nil)
}

func (d *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.ITransaction, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{executor: executor{c: tx, dialect: d.dialect}, db: d.db, tx: tx}, nil
}

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *DB) Close() error                   { return d.db.Close() }
func (d *DB) Raw() any                       { return d.db }

// SQLDB 返回底层 *sql.DB
func (d *DB) SQLDB() *sql.DB { return d.db }

// GetDialectName 实现 core.IDialectNameProvider
func (d *DB) GetDialectName() string {
	return d.driver
}

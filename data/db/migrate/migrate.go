// Package migrate 管理内嵌的数据库迁移
package migrate

import (
	"context"
	"database/sql"
	"embed"
	stdErrors "errors"
	"fmt"

	gomigrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"natours/data/db"
	"natours/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrator 对一个数据库执行迁移，Close 不关闭数据库
type Migrator struct {
	m      *gomigrate.Migrate
	logger logging.Logger
}

// New 创建 Migrator，database.Raw() 必须返回 *sql.DB（事务连接不可迁移）
func New(database db.IDatabase) (*Migrator, error) {
	raw, ok := database.Raw().(*sql.DB)
	if !ok {
		return nil, fmt.Errorf("migrate: %T is not a *sql.DB", database.Raw())
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate: open source: %w", err)
	}
	drv, err := sqlite.WithInstance(raw, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrate: open driver: %w", err)
	}
	m, err := gomigrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Migrator{m: m, logger: logging.GetLogger()}, nil
}

// Up 迁移到最新版本，已是最新时不报错
func (mg *Migrator) Up(ctx context.Context) error {
	if err := mg.m.Up(); err != nil && !stdErrors.Is(err, gomigrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	mg.logVersion(ctx, "schema migrated")
	return nil
}

// Down 回滚全部迁移
func (mg *Migrator) Down(ctx context.Context) error {
	if err := mg.m.Down(); err != nil && !stdErrors.Is(err, gomigrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	mg.logVersion(ctx, "schema rolled back")
	return nil
}

// Steps 前进（正数）或回退（负数）n 个版本
func (mg *Migrator) Steps(ctx context.Context, n int) error {
	if err := mg.m.Steps(n); err != nil {
		return fmt.Errorf("migrate steps %d: %w", n, err)
	}
	mg.logVersion(ctx, "schema stepped")
	return nil
}

// Version 当前版本，未迁移时 version 为 0
func (mg *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = mg.m.Version()
	if stdErrors.Is(err, gomigrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (mg *Migrator) logVersion(ctx context.Context, msg string) {
	v, dirty, err := mg.Version()
	if err != nil {
		mg.logger.Warn(ctx, msg, logging.Error(err))
		return
	}
	mg.logger.Info(ctx, msg, logging.Uint64("version", uint64(v)), logging.Bool("dirty", dirty))
}

// Up 便捷方法：创建 Migrator 并迁移到最新版本
func Up(ctx context.Context, database db.IDatabase) error {
	mg, err := New(database)
	if err != nil {
		return err
	}
	return mg.Up(ctx)
}

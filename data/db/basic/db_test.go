package basic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "natours/data/db"
)

func newMemoryDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(core.DBConfig{Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(context.Background(), `CREATE TABLE tours (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`)
	require.NoError(t, err)
	return db
}

func TestNew_RequiresDatabase(t *testing.T) {
	_, err := New(core.DBConfig{})
	assert.Error(t, err)
}

func TestDB_ExecAndQuery(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()

	_, err := db.Exec(ctx, `INSERT INTO tours (id, name) VALUES (?, ?), (?, ?)`, 1, "The Forest Hiker", 2, "The Sea Explorer")
	require.NoError(t, err)

	rows, err := db.Query(ctx, `SELECT name FROM tours ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"The Forest Hiker", "The Sea Explorer"}, names)

	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM tours`).Scan(&count))
	assert.Equal(t, 2, count)
	assert.Equal(t, "sqlite", db.GetDialectName())
}

func TestRunInTx_RollbackOnError(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()

	err := core.RunInTx(ctx, db, func(tx core.ITransaction) error {
		if _, err := tx.Exec(ctx, `INSERT INTO tours (id, name) VALUES (?, ?)`, 1, "A"); err != nil {
			return err
		}
		return errors.New("中途失败")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM tours`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestRunInTx_Commit(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()

	err := core.RunInTx(ctx, db, func(tx core.ITransaction) error {
		_, err := tx.Exec(ctx, `INSERT INTO tours (id, name) VALUES (?, ?)`, 1, "A")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM tours`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestTx_NestedNotSupported(t *testing.T) {
	db := newMemoryDB(t)
	tx, err := db.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Begin(context.Background())
	assert.ErrorIs(t, err, ErrNestedTx)
	assert.Equal(t, "sqlite", tx.(core.IDialectNameProvider).GetDialectName())
}

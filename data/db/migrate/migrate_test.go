package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/data/db"
	"natours/data/db/basic"
)

func tableExists(t *testing.T, database db.IDatabase, name string) bool {
	t.Helper()
	var n int
	err := database.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestMigrator_UpDown(t *testing.T) {
	database, err := basic.New(db.DBConfig{Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	ctx := context.Background()

	mg, err := New(database)
	require.NoError(t, err)

	v, _, err := mg.Version()
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, mg.Up(ctx))
	// 重复执行不报错
	require.NoError(t, mg.Up(ctx))
	assert.True(t, tableExists(t, database, "tours"))
	assert.True(t, tableExists(t, database, "users"))

	v, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)

	require.NoError(t, mg.Steps(ctx, -1))
	assert.False(t, tableExists(t, database, "users"))

	require.NoError(t, mg.Down(ctx))
	assert.False(t, tableExists(t, database, "tours"))
}

func TestNew_RejectsTransaction(t *testing.T) {
	database, err := basic.New(db.DBConfig{Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	tx, err := database.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = New(tx)
	assert.Error(t, err)
}

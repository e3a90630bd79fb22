package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("", "NATOURS_TEST_DEFAULTS_")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, TransportMemory, cfg.Transport)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, int64(1), cfg.NodeID)
	assert.Equal(t, 5000, cfg.DBBusyTimeoutMS)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.env")
	require.NoError(t, os.WriteFile(file, []byte("ENV=production\nDB_PATH=/tmp/tours.db\nCACHE_TTL=30s\n"), 0o600))

	t.Setenv("NATOURS_T1_DB_PATH", "/data/override.db")
	t.Setenv("NATOURS_T1_TRANSPORT", "REDIS")

	cfg, err := LoadFrom(file, "NATOURS_T1_")
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "/data/override.db", cfg.DBPath)
	assert.Equal(t, TransportRedis, cfg.Transport)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadFrom_PortAlias(t *testing.T) {
	t.Setenv("PORT", "8081")

	cfg, err := LoadFrom("", "NATOURS_T2_")
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Port)
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Setenv("NATOURS_T3_TRANSPORT", "kafka")

	_, err := LoadFrom("", "NATOURS_T3_")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	base := Config{Env: EnvProduction, Port: 80, DBPath: "x.db", Transport: TransportNATS}
	assert.Error(t, base.Validate())

	base.NatsURL = "nats://localhost:4222"
	assert.NoError(t, base.Validate())

	base.NodeID = 1024
	assert.Error(t, base.Validate())
	base.NodeID = 3

	base.Env = "staging"
	assert.Error(t, base.Validate())
}

func TestLoadFrom_SyncTransport(t *testing.T) {
	t.Setenv("NATOURS_T4_TRANSPORT", "sync")

	cfg, err := LoadFrom("", "NATOURS_T4_")
	require.NoError(t, err)
	assert.Equal(t, TransportSync, cfg.Transport)
	assert.Equal(t, "natours:", cfg.RedisStream)
}

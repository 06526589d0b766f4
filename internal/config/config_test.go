package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Bot.PollTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.PoolSize)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Second, cfg.Redis.LockTimeout)
	assert.Equal(t, 12*time.Hour, cfg.Media.QueueTTL)
	assert.Equal(t, 50, cfg.Media.HistoryLimit)
	assert.Equal(t, 2.0, cfg.RateLimit.PerSecond)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
bot:
  token: from-file
database:
  host: db.internal
  name: economy
admin:
  ids: [7, 9]
whitelist:
  chats: [-100123]
settings:
  refresh: "@every 5m"
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("DATABASE_PASSWORD", "secret")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Bot.Token)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, []int64{7, 9}, cfg.Admin.IDs)
	assert.Equal(t, "@every 5m", cfg.Settings.Refresh)

	assert.True(t, cfg.IsAdmin(9))
	assert.False(t, cfg.IsAdmin(8))
	assert.True(t, cfg.IsChatAllowed(-100123))
	assert.False(t, cfg.IsChatAllowed(42))
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := writeConfig(t, "bot: [unclosed")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestIsChatAllowed_EmptyWhitelist(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.IsChatAllowed(1))
	assert.True(t, cfg.IsChatAllowed(-100))
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5433, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "postgres://u:p@h:5433/n?sslmode=disable", d.DSN())

	d.SSLMode = "require"
	assert.Equal(t, "postgres://u:p@h:5433/n?sslmode=require", d.DSN())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: "prod"
radio:
  addr: "radio:8082"
session:
  storage: "redis"
`), 0o644))

	cfg := MustLoadPath(path)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "radio:8082", cfg.Radio.Addr)
	assert.Equal(t, 10*time.Second, cfg.Radio.Timeout)
	assert.Equal(t, "Europe/Moscow", cfg.Timezone)
	assert.Equal(t, 10, cfg.SchedulePageSize)
	assert.Equal(t, 72, cfg.AutoDJMaxHours)
	assert.Equal(t, 10*time.Minute, cfg.AutoDJTimeout)
	assert.Empty(t, cfg.Webhook.Secret)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadSize)
	assert.Equal(t, "file", cfg.Users.Storage)
	assert.Equal(t, "redis", cfg.Session.Storage)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "localhost:6379", cfg.Session.Redis.Addr)
}

func TestMustLoadPathMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustLoadPath(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}

func TestMustLoadPathRequired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`env: "local"`), 0o644))

	assert.Panics(t, func() {
		MustLoadPath(path)
	})
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/config"
	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.Game.TickInterval)
	assert.Equal(t, 20, cfg.Game.MaxShots)
	assert.Equal(t, 5*time.Second, cfg.Session.HeartbeatInterval)
	assert.Equal(t, 10*time.Second, cfg.Session.ClientTimeout)
	assert.Equal(t, "main", cfg.Registry.ChatRoom)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.NATS.Enabled)
}

func TestLoad(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("NATS_URL", "")

	path := writeConfig(t, `
server:
  port: 9090
game:
  tick_interval: 50ms
session:
  heartbeat_interval: 2s
  client_timeout: 6s
  rate_limit:
    capacity: 10
redis:
  enabled: true
  addr: redis:6379
log:
  level: debug
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50*time.Millisecond, cfg.Game.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.Session.HeartbeatInterval)
	assert.Equal(t, 6*time.Second, cfg.Session.ClientTimeout)
	assert.Equal(t, int64(10), cfg.Session.RateLimit.Capacity)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// 檔案未提到的欄位保留預設值
	assert.Equal(t, 20, cfg.Game.MaxShots)
	assert.Equal(t, int64(20), cfg.Session.RateLimit.RefillRate)
	assert.Equal(t, "main", cfg.Registry.ChatRoom)
	assert.Equal(t, "arcade", cfg.Redis.KeyPrefix)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("NATS_URL", "nats://bus:4222")

	cfg, err := config.Load(writeConfig(t, "server:\n  port: 8081\n"))
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "nats://bus:4222", cfg.NATS.URL)
}

func TestLoad_EmptyPath(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("NATS_URL", "")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.Load(writeConfig(t, "server: [not, a, map"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{name: "port", mutate: func(c *config.Config) { c.Server.Port = 0 }},
		{name: "tick interval", mutate: func(c *config.Config) { c.Game.TickInterval = 0 }},
		{name: "max shots", mutate: func(c *config.Config) { c.Game.MaxShots = -1 }},
		{name: "timeout not above heartbeat", mutate: func(c *config.Config) {
			c.Session.ClientTimeout = c.Session.HeartbeatInterval
		}},
		{name: "send buffer", mutate: func(c *config.Config) { c.Session.SendBuffer = 0 }},
		{name: "rate limit", mutate: func(c *config.Config) { c.Session.RateLimit.RefillRate = 0 }},
		{name: "mailbox", mutate: func(c *config.Config) { c.Registry.MailboxSize = 0 }},
		{name: "chat room", mutate: func(c *config.Config) { c.Registry.ChatRoom = "" }},
		{name: "redis addr", mutate: func(c *config.Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}},
		{name: "nats url", mutate: func(c *config.Config) {
			c.NATS.Enabled = true
			c.NATS.URL = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsInvalidInput(err))
		})
	}
}

package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
telegram:
  token: file-token
  run_mode: polling
database:
  host: localhost
  name: notesbot
  user: notes
state:
  backend: Redis
  redis_url: redis://localhost:6379/0
  ttl: 2h
flow:
  lock_timeout: 3s
metrics:
  listen: ":9090"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("FLOW_NOTES_PAGE_SIZE", "5")

	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, StateRedis, cfg.State.Backend)
	assert.Equal(t, 2*time.Hour, cfg.State.TTL)
	assert.Equal(t, 3*time.Second, cfg.Flow.LockTimeout)
	assert.Equal(t, 5, cfg.Flow.NotesPageSize)
	assert.Equal(t, ":9090", cfg.Metrics.Listen)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestNormalizeDefaultsAndRejects(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Telegram.Token = "t"
		cfg.Database.Host = "db"
		cfg.Database.Name = "notes"
		return cfg
	}

	cfg := base()
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, StateMemory, cfg.State.Backend)

	bad := map[string]func(*Config){
		"no database":     func(c *Config) { c.Database.Host = "" },
		"unknown backend": func(c *Config) { c.State.Backend = "etcd" },
		"redis no url":    func(c *Config) { c.State.Backend = "redis" },
		"negative ttl":    func(c *Config) { c.State.TTL = -time.Second },
		"negative page":   func(c *Config) { c.Flow.NotesPageSize = -1 },
		"no token":        func(c *Config) { c.Telegram.Token = "" },
	}
	for name, mutate := range bad {
		cfg := base()
		mutate(cfg)
		assert.Error(t, cfg.Normalize(), name)
	}
}

func TestNormalizeRedisLockOutlivesDispatch(t *testing.T) {
	redis := func(expiry, op time.Duration) *Config {
		cfg := &Config{}
		cfg.Telegram.Token = "t"
		cfg.Database.Host = "db"
		cfg.Database.Name = "notes"
		cfg.State.Backend = StateRedis
		cfg.State.RedisURL = "redis://localhost:6379/0"
		cfg.State.LockExpiry = expiry
		cfg.Flow.OpTimeout = op
		return cfg
	}

	// defaults: 15s expiry against a 3s op timeout
	require.NoError(t, redis(0, 0).Normalize())
	require.NoError(t, redis(10*time.Second, 3*time.Second).Normalize())

	err := redis(9*time.Second, 3*time.Second).Normalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock_expiry")

	assert.Error(t, redis(0, 5*time.Second).Normalize(), "default expiry vs 5s op timeout")
	assert.Error(t, redis(5*time.Second, 0).Normalize(), "5s expiry vs default op timeout")

	mem := redis(time.Second, 3*time.Second)
	mem.State.Backend = StateMemory
	assert.NoError(t, mem.Normalize(), "memory locks never expire")
}

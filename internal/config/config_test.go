package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("environment only", func(t *testing.T) {
		t.Setenv("SECRET_KEY", testSecret)
		t.Setenv("ADMIN_PASSWORD", "hunter22hunter22")

		cfg, err := config.Load("")
		require.NoError(t, err)
		assert.Equal(t, 3600, cfg.Security.SessionTimeout)
		assert.Equal(t, "admin", cfg.Admin.Username)
		assert.Equal(t, "127.0.0.1:8080", cfg.Server.ListenAddress)
		assert.Empty(t, cfg.Redis.Addr)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeFile(t, `
security:
  secret_key: from-file-0123456789
  session_timeout: 600
  bcrypt_rounds: 11
admin:
  username: root
  password: from-file
redis:
  addr: redis:6379
  db: 2
logging:
  format: json
sweep_interval: 30s
`)
		t.Setenv("SESSION_TIMEOUT", "900")
		t.Setenv("REDIS_ADDR", "cache:6380")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-file-0123456789", cfg.Security.SecretKey)
		assert.Equal(t, 900, cfg.Security.SessionTimeout)
		assert.Equal(t, 11, cfg.Security.BcryptRounds)
		assert.Equal(t, "root", cfg.Admin.Username)
		assert.Equal(t, "cache:6380", cfg.Redis.Addr)
		assert.Equal(t, 2, cfg.Redis.DB)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	})

	t.Run("unknown yaml key", func(t *testing.T) {
		path := writeFile(t, "security:\n  secret: nope\n")
		_, err := config.Load(path)
		assert.ErrorContains(t, err, "parse config file")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "read config file")
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("SECRET_KEY", testSecret)
		t.Setenv("ADMIN_PASSWORD", "x")
		t.Setenv("SESSION_TIMEOUT", "an hour")
		_, err := config.Load("")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		cfg := config.Defaults()
		cfg.Security.SecretKey = testSecret
		cfg.Admin.Password = "pw"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := map[string]func(*config.Config){
		"missing secret":    func(c *config.Config) { c.Security.SecretKey = "" },
		"missing password":  func(c *config.Config) { c.Admin.Password = "" },
		"timeout too short": func(c *config.Config) { c.Security.SessionTimeout = 299 },
		"timeout too long":  func(c *config.Config) { c.Security.SessionTimeout = 86401 },
		"log format":        func(c *config.Config) { c.Logging.Format = "xml" },
		"redis timeout":     func(c *config.Config) { c.Redis.Timeout = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	bounds := valid()
	bounds.Security.SessionTimeout = config.MinSessionTimeoutSeconds
	assert.NoError(t, bounds.Validate())
	bounds.Security.SessionTimeout = config.MaxSessionTimeoutSeconds
	assert.NoError(t, bounds.Validate())
}

func TestSession(t *testing.T) {
	cfg := config.Defaults()
	cfg.Security.SecretKey = testSecret
	cfg.Security.SessionTimeout = 600
	cfg.Security.BcryptRounds = 10
	cfg.Admin.Password = "plaintext-password"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Timeout = 250 * time.Millisecond

	lib := cfg.Session()
	assert.Equal(t, 10*time.Minute, lib.SessionTimeout)
	assert.Equal(t, "plaintext-password", lib.Admin.Password)
	assert.Empty(t, lib.Admin.PasswordHash)
	assert.Equal(t, 250*time.Millisecond, lib.Redis.OpTimeout)
	assert.Equal(t, 250*time.Millisecond, lib.Redis.DialTimeout)
	require.NoError(t, lib.Validate())

	const hash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	cfg.Admin.Password = hash
	lib = cfg.Session()
	assert.Equal(t, hash, lib.Admin.PasswordHash)
	assert.Empty(t, lib.Admin.Password)
}

// Package config loads gosessiond settings: defaults, then an optional YAML
// file, then environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	MinSessionTimeoutSeconds = 300
	MaxSessionTimeoutSeconds = 86400
)

type Server struct {
	// ListenAddress The host:port combination used by the http server.
	//
	// Example: `127.0.0.1:8080`
	ListenAddress string `yaml:"listen_address" envconfig:"LISTEN_ADDRESS"`

	// ShutdownTimeout How long in-flight requests get after a termination signal.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

type Security struct {
	// SecretKey The HMAC key used to sign session tokens. At least 16 bytes.
	SecretKey string `yaml:"secret_key" envconfig:"SECRET_KEY"`

	// SessionTimeout Session lifetime in seconds, between 300 and 86400.
	SessionTimeout int `yaml:"session_timeout" envconfig:"SESSION_TIMEOUT"`

	// BcryptRounds The bcrypt cost used when the admin password is given in plaintext.
	BcryptRounds int `yaml:"bcrypt_rounds" envconfig:"BCRYPT_ROUNDS"`

	// LoginThrottle Lock an account after repeated failed logins. Requires Redis.
	LoginThrottle bool `yaml:"login_throttle" envconfig:"LOGIN_THROTTLE"`

	// CookieSecure Mark the session cookie Secure. Disable only for local plain-http use.
	CookieSecure bool `yaml:"cookie_secure" envconfig:"COOKIE_SECURE"`
}

type Admin struct {
	Username string `yaml:"username" envconfig:"ADMIN_USERNAME"`

	// Password Either a bcrypt hash or a plaintext password, which is hashed at startup.
	Password string `yaml:"password" envconfig:"ADMIN_PASSWORD"`
}

type Redis struct {
	// Addr Empty keeps sessions in process memory.
	//
	// Example: `localhost:6379`
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`

	// Timeout Bounds dial, read, write and each store call.
	Timeout time.Duration `yaml:"timeout" envconfig:"REDIS_TIMEOUT"`
}

type Logging struct {
	// Level The log level used in gosessiond.
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`

	// Format Customize the log format. Can be "text" or "json".
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
}

type Config struct {
	Server   Server   `yaml:"server"`
	Security Security `yaml:"security"`
	Admin    Admin    `yaml:"admin"`
	Redis    Redis    `yaml:"redis"`
	Logging  Logging  `yaml:"logging"`

	// SweepInterval How often expired in-process sessions are removed.
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL"`

	// Audit Emit audit events to the log.
	Audit bool `yaml:"audit" envconfig:"AUDIT"`
}

func Defaults() *Config {
	lib := goSession.DefaultConfig()
	return &Config{
		Server: Server{
			ListenAddress:   "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Security: Security{
			SessionTimeout: int(lib.SessionTimeout / time.Second),
			BcryptRounds:   lib.Admin.BcryptCost,
			CookieSecure:   lib.Cookie.Secure,
		},
		Admin: Admin{
			Username: lib.Admin.Username,
		},
		Redis: Redis{
			Prefix:  lib.Redis.Prefix,
			Timeout: time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		SweepInterval: lib.Sweep.Interval,
		Audit:         true,
	}
}

// Load applies the YAML file at path, when path is non-empty, and then the
// environment on top of [Defaults].
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeYAML(bytes.NewReader(data), cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the daemon-level bounds. Everything else is checked by
// [goSession.Config.Validate] when the manager is built.
func (c *Config) Validate() error {
	if c.Security.SecretKey == "" {
		return errors.New("secret key is required (SECRET_KEY)")
	}
	if c.Security.SessionTimeout < MinSessionTimeoutSeconds || c.Security.SessionTimeout > MaxSessionTimeoutSeconds {
		return fmt.Errorf("session timeout must be between %d and %d seconds, got %d",
			MinSessionTimeoutSeconds, MaxSessionTimeoutSeconds, c.Security.SessionTimeout)
	}
	if c.Admin.Password == "" {
		return errors.New("admin password is required (ADMIN_PASSWORD)")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	if c.Redis.Timeout <= 0 {
		return errors.New("redis timeout must be > 0")
	}
	return nil
}

// Session converts c into the library configuration.
func (c *Config) Session() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.SecretKey = c.Security.SecretKey
	cfg.SessionTimeout = time.Duration(c.Security.SessionTimeout) * time.Second

	cfg.Admin.Username = strings.TrimSpace(c.Admin.Username)
	cfg.Admin.BcryptCost = c.Security.BcryptRounds
	if password.IsHash(c.Admin.Password) {
		cfg.Admin.PasswordHash = c.Admin.Password
	} else {
		cfg.Admin.Password = c.Admin.Password
	}

	cfg.Redis.Addr = c.Redis.Addr
	cfg.Redis.Password = c.Redis.Password
	cfg.Redis.DB = c.Redis.DB
	cfg.Redis.Prefix = c.Redis.Prefix
	cfg.Redis.DialTimeout = c.Redis.Timeout
	cfg.Redis.ReadTimeout = c.Redis.Timeout
	cfg.Redis.WriteTimeout = c.Redis.Timeout
	cfg.Redis.OpTimeout = c.Redis.Timeout

	cfg.Sweep.Interval = c.SweepInterval
	cfg.LoginThrottle.Enabled = c.Security.LoginThrottle
	cfg.Audit.Enabled = c.Audit
	cfg.Cookie.Secure = c.Security.CookieSecure
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

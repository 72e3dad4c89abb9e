package goSession

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

const (
	// MinSecretKeyLength is the shortest signing secret Validate accepts.
	MinSecretKeyLength = 16
	// MaxSessionTimeout caps SessionTimeout.
	MaxSessionTimeout = 24 * time.Hour
)

// Config defines a public type used by goSession APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// SecretKey signs session tokens. Rotating it invalidates every token
	// the store does not hold.
	SecretKey string
	// TokenNamespace separates admin tokens from other tokens signed with
	// the same secret.
	TokenNamespace string
	SessionTimeout time.Duration

	Admin         AdminConfig
	Redis         RedisConfig
	Sweep         SweepConfig
	LoginThrottle LoginThrottleConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Cookie        CookieConfig
}

/*
====================================
ADMIN CONFIG
====================================
*/

// AdminConfig holds the single administrator credential.
//
// Exactly one of Password and PasswordHash must be set. A plaintext Password
// is hashed with BcryptCost during Build and never retained.
type AdminConfig struct {
	Username     string
	Password     string
	PasswordHash string
	BcryptCost   int
}

/*
====================================
REDIS CONFIG
====================================
*/

// RedisConfig describes the networked session store.
//
// Addr is only consulted when the Builder was not handed a client through
// WithRedis. An empty Addr with no client runs the manager in-process only.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// OpTimeout bounds every store call before it falls back in-process.
	OpTimeout time.Duration
	// HealthTTL is how long Redis is bypassed after a failure. Negative
	// probes Redis on every call.
	HealthTTL time.Duration
	Prefix    string
}

/*
====================================
SWEEP CONFIG
====================================
*/

// SweepConfig defines a public type used by goSession APIs.
type SweepConfig struct {
	// Interval between background sweeps started by StartSweeper.
	Interval time.Duration
}

/*
====================================
LOGIN THROTTLE CONFIG
====================================
*/

// LoginThrottleConfig limits failed logins per username. It needs Redis.
type LoginThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Cooldown    time.Duration
}

// AuditConfig defines a public type used by goSession APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// DrainTimeout bounds how long Manager.Close waits for the sink.
	DrainTimeout time.Duration
}

// MetricsConfig defines a public type used by goSession APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls the session cookie written by HTTP adapters.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// DefaultConfig returns the baseline configuration. SecretKey and the admin
// credential are left empty and must be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		TokenNamespace: token.DefaultNamespace,
		SessionTimeout: time.Hour,
		Admin: AdminConfig{
			Username:   "admin",
			BcryptCost: password.DefaultCost,
		},
		Redis: RedisConfig{
			DialTimeout:  time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			OpTimeout:    session.DefaultOpTimeout,
			HealthTTL:    session.DefaultHealthTTL,
			Prefix:       session.DefaultRedisPrefix,
		},
		Sweep: SweepConfig{
			Interval: time.Minute,
		},
		LoginThrottle: LoginThrottleConfig{
			Enabled:     false,
			MaxAttempts: 5,
			Cooldown:    15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize:   1024,
			DropIfFull:   true,
			DrainTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Cookie: CookieConfig{
			Name:     "session_token",
			Path:     "/",
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if len(c.SecretKey) < MinSecretKeyLength {
		return errors.New("SecretKey must be at least 16 bytes")
	}
	if strings.TrimSpace(c.TokenNamespace) == "" {
		return errors.New("TokenNamespace must not be empty")
	}
	if c.SessionTimeout <= 0 {
		return errors.New("SessionTimeout must be > 0")
	}
	if c.SessionTimeout > MaxSessionTimeout {
		return errors.New("SessionTimeout must be <= 24h")
	}

	if strings.TrimSpace(c.Admin.Username) == "" {
		return errors.New("Admin Username must not be empty")
	}
	if err := password.ValidateCost(c.Admin.BcryptCost); err != nil {
		return err
	}
	switch {
	case c.Admin.Password == "" && c.Admin.PasswordHash == "":
		return errors.New("Admin Password or PasswordHash is required")
	case c.Admin.Password != "" && c.Admin.PasswordHash != "":
		return errors.New("Admin Password and PasswordHash are mutually exclusive")
	case c.Admin.PasswordHash != "" && !password.IsHash(c.Admin.PasswordHash):
		return errors.New("Admin PasswordHash is not a bcrypt hash")
	}

	if c.Redis.DB < 0 {
		return errors.New("Redis DB must be >= 0")
	}
	if c.Redis.DialTimeout < 0 || c.Redis.ReadTimeout < 0 || c.Redis.WriteTimeout < 0 {
		return errors.New("Redis timeouts must be >= 0")
	}
	if c.Redis.OpTimeout <= 0 {
		return errors.New("Redis OpTimeout must be > 0")
	}

	if c.Sweep.Interval <= 0 {
		return errors.New("Sweep Interval must be > 0")
	}

	if c.LoginThrottle.Enabled {
		if c.LoginThrottle.MaxAttempts <= 0 {
			return errors.New("LoginThrottle MaxAttempts must be > 0")
		}
		if c.LoginThrottle.Cooldown <= 0 {
			return errors.New("LoginThrottle Cooldown must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.DrainTimeout < 0 {
		return errors.New("Audit DrainTimeout must be >= 0")
	}

	if strings.TrimSpace(c.Cookie.Name) == "" {
		return errors.New("Cookie Name must not be empty")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	return nil
}

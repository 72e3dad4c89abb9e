package goSession

import (
	"context"
	"errors"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder defines a public type used by goSession APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	logger    logrus.FieldLogger
	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the whole configuration; start from [DefaultConfig] to keep defaults.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis takes precedence over Config.Redis.Addr. The caller keeps
// ownership of client; Manager.Close does not close it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the logger used for operational messages. The default
// discards everything.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// When audit is enabled and no sink is set, events are written through the logger.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when configuration validation or credential setup fails.
// An unreachable Redis is not an error: the manager starts on the
// in-process fallback and moves to Redis once it answers.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	client := b.redis
	ownsRedis := false
	if client == nil && cfg.Redis.Addr != "" {
		client = newRedisClient(cfg.Redis)
		ownsRedis = true
	}
	if cfg.LoginThrottle.Enabled && client == nil {
		return nil, errors.New("LoginThrottle requires redis client")
	}

	closeOwned := func() {
		if ownsRedis {
			_ = client.Close()
		}
	}

	// -------- CREDENTIALS --------
	hasher, err := password.NewBcrypt(cfg.Admin.BcryptCost)
	if err != nil {
		closeOwned()
		return nil, err
	}
	hash := cfg.Admin.PasswordHash
	if hash == "" {
		hash, err = hasher.Hash(cfg.Admin.Password)
		if err != nil {
			closeOwned()
			return nil, err
		}
		logger.Warn("admin password supplied in plaintext; configure a bcrypt hash instead")
	}
	cfg.Admin.Password = ""
	cfg.Admin.PasswordHash = hash

	verifier, err := password.NewVerifier(cfg.Admin.Username, hash, hasher, logger)
	if err != nil {
		closeOwned()
		return nil, err
	}

	// -------- TOKEN CODEC --------
	codec, err := token.NewCodec(token.Config{
		Secret:    []byte(cfg.SecretKey),
		Namespace: cfg.TokenNamespace,
		Now:       now,
	})
	if err != nil {
		closeOwned()
		return nil, err
	}

	m := &Manager{
		config:    cfg,
		logger:    logger,
		now:       now,
		metrics:   NewMetrics(cfg.Metrics),
		redis:     client,
		ownsRedis: ownsRedis,
	}

	// -------- SESSION STORE --------
	if client == nil {
		m.store = session.NewMemoryStore(now)
		m.backend = BackendMemory
	} else {
		m.redisStore = session.NewRedisStore(client, cfg.Redis.Prefix, now)
		m.fallback = session.NewFallbackStore(m.redisStore, nil, session.FallbackConfig{
			OpTimeout:  cfg.Redis.OpTimeout,
			HealthTTL:  cfg.Redis.HealthTTL,
			OnFallback: m.onStoreFallback,
			Logger:     logger,
			Now:        now,
		})
		m.store = m.fallback
		m.backend = BackendRedis

		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Redis.OpTimeout)
		if _, err := m.redisStore.Ping(pingCtx); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup; sessions are held in-process until it recovers")
		}
		cancel()
	}

	// -------- AUDIT --------
	sink := b.auditSink
	if cfg.Audit.Enabled && sink == nil {
		sink = internalaudit.NewLogSink(logger)
	}
	m.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:      cfg.Audit.Enabled,
		BufferSize:   cfg.Audit.BufferSize,
		DropIfFull:   cfg.Audit.DropIfFull,
		DrainTimeout: cfg.Audit.DrainTimeout,
	}, sink)

	// -------- FLOWS --------
	common := flows.Common{
		Store:          m.store,
		Now:            now,
		SessionTimeout: cfg.SessionTimeout,
		Logger:         logger,
	}

	loginDeps := flows.LoginDeps{
		Common:      common,
		Verify:      verifier.Verify,
		EncodeToken: codec.Encode,
		RateLimited: rate.ErrRateLimited,
	}
	if cfg.LoginThrottle.Enabled {
		m.limiter = rate.New(client, rate.Config{
			MaxLoginAttempts:      cfg.LoginThrottle.MaxAttempts,
			LoginCooldownDuration: cfg.LoginThrottle.Cooldown,
		})
		loginDeps.Throttle = m.limiter
	}

	m.flows = flows.New(flows.Deps{
		Login: loginDeps,
		Validate: flows.ValidateDeps{
			Common:      common,
			DecodeToken: codec.Decode,
			ErrExpired:  token.ErrExpired,
		},
		Refresh: flows.RefreshDeps{
			Common:      common,
			EncodeToken: codec.Encode,
		},
		Logout: flows.LogoutDeps{Common: common},
		Admin:  flows.AdminDeps{Common: common},
	})

	b.built = true

	return m, nil
}

func newRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

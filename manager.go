package goSession

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// StoreBackend names the primary session store a Manager was built with.
type StoreBackend string

const (
	// BackendMemory keeps sessions in-process only.
	BackendMemory StoreBackend = "memory"
	// BackendRedis keeps sessions in Redis with in-process fallback.
	BackendRedis StoreBackend = "redis"
)

// Manager is the session lifecycle coordinator. It is safe for concurrent
// use once returned by [Builder.Build].
//
// Store calls made on behalf of a request run detached from the caller's
// cancellation, so an abandoned request never leaves a half-applied
// login, refresh or logout behind.
type Manager struct {
	config Config
	flows  flows.Service

	store      session.Store
	backend    StoreBackend
	fallback   *session.FallbackStore
	redisStore *session.RedisStore
	redis      redis.UniversalClient
	ownsRedis  bool

	limiter *rate.Limiter

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  logrus.FieldLogger
	now     func() time.Time

	sweepMu   sync.Mutex
	sweepStop context.CancelFunc
	sweepDone chan struct{}

	closeOnce sync.Once
}

func (m *Manager) ready() bool {
	return m != nil && m.flows.Initialized()
}

func detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

/*
====================================
SESSION LIFECYCLE
====================================
*/

// Login describes the login operation and its observable behavior.
//
// Login verifies the admin credential and, on success, mints a token and
// stores its session for SessionTimeout. Every credential mismatch returns
// [ErrInvalidCredentials] with the same message and writes nothing.
// While the failed-attempt budget is spent it returns [ErrLoginRateLimited]
// without checking the password.
func (m *Manager) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if !m.ready() {
		return LoginResult{Message: msgInvalidCredentials}, ErrManagerNotReady
	}

	res := m.flows.Login(detach(ctx), username, password)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureInvalidCredentials:
		m.metrics.Inc(MetricLoginFailure)
		m.emitAudit(ctx, auditEventLoginFailure, "", "", false, ErrInvalidCredentials.Error(), nil)
		return LoginResult{Message: msgInvalidCredentials}, ErrInvalidCredentials
	case flows.LoginFailureRateLimited:
		m.metrics.Inc(MetricLoginRateLimited)
		m.emitAudit(ctx, auditEventLoginRateLimited, "", "", false, ErrLoginRateLimited.Error(), nil)
		return LoginResult{Message: msgRateLimited}, ErrLoginRateLimited
	default:
		m.metrics.Inc(MetricStoreError)
		m.logger.WithError(res.Err).Error("login could not create a session")
		return LoginResult{Message: msgInvalidCredentials}, res.Err
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.logger.WithField("session_ref", sessionRef(res.Token)).Info("admin logged in")
	m.emitAudit(ctx, auditEventLoginSuccess, res.Record.Principal, res.Token, true, "", nil)

	return LoginResult{
		Success:   true,
		Message:   msgLoginSuccess,
		Token:     res.Token,
		ExpiresAt: res.Record.ExpiresAt,
	}, nil
}

// Validate describes the validate operation and its observable behavior.
//
// Validate resolves token to its live session. The store answers first; a
// revoked or expired entry is final. Only when the store holds nothing is
// the token's signature checked, and a token younger than SessionTimeout is
// re-admitted with its remaining lifetime. Any other outcome returns
// [ErrSessionNotFound].
func (m *Manager) Validate(ctx context.Context, token string) (SessionInfo, error) {
	if !m.ready() {
		return SessionInfo{}, ErrManagerNotReady
	}

	var start time.Time
	if m.metrics.LatencyEnabled() {
		start = time.Now()
	}

	res := m.flows.Validate(detach(ctx), token)

	if !start.IsZero() {
		m.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	switch res.Failure {
	case flows.ValidateFailureNone:
	case flows.ValidateFailureInternal:
		m.metrics.Inc(MetricValidateFailure)
		m.metrics.Inc(MetricStoreError)
		m.logger.WithError(res.Err).Error("session lookup failed")
		return SessionInfo{}, res.Err
	default:
		m.metrics.Inc(MetricValidateFailure)
		return SessionInfo{}, ErrSessionNotFound
	}

	m.metrics.Inc(MetricValidateSuccess)
	if res.Readmitted {
		m.metrics.Inc(MetricSessionReadmitted)
		m.emitAudit(ctx, auditEventSessionReadmitted, res.Record.Principal, token, true, "", nil)
	}

	return newSessionInfo(res.Record, m.now()), nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh rotates a live session onto a new token with a fresh
// SessionTimeout and revokes the old token. It consults only the store, so a
// token the store has never seen returns [ErrSessionNotFound] until it has
// been validated once.
func (m *Manager) Refresh(ctx context.Context, token string) (string, error) {
	if !m.ready() {
		return "", ErrManagerNotReady
	}

	res := m.flows.Refresh(detach(ctx), token)
	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureNotFound:
		m.metrics.Inc(MetricRefreshFailure)
		m.emitAudit(ctx, auditEventRefreshNotFound, "", token, false, ErrSessionNotFound.Error(), nil)
		return "", ErrSessionNotFound
	default:
		m.metrics.Inc(MetricRefreshFailure)
		m.metrics.Inc(MetricStoreError)
		m.logger.WithError(res.Err).Error("session refresh failed")
		return "", res.Err
	}

	m.metrics.Inc(MetricRefreshSuccess)
	m.emitAudit(ctx, auditEventRefreshSuccess, res.Record.Principal, res.Token, true, "", map[string]string{
		"previous_session_ref": sessionRef(token),
	})

	return res.Token, nil
}

// Logout describes the logout operation and its observable behavior.
//
// Logout revokes the session stored under token. The token still carries a
// valid signature afterwards; Validate refuses it because the store keeps a
// revocation marker for as long as the signature would be accepted.
func (m *Manager) Logout(ctx context.Context, token string) (LogoutResult, error) {
	if !m.ready() {
		return LogoutResult{Message: msgSessionNotFound}, ErrManagerNotReady
	}

	res := m.flows.Logout(detach(ctx), token)
	switch res.Failure {
	case flows.LogoutFailureNone:
	case flows.LogoutFailureNotFound:
		m.metrics.Inc(MetricLogoutNotFound)
		m.emitAudit(ctx, auditEventLogoutNotFound, "", token, false, ErrSessionNotFound.Error(), nil)
		return LogoutResult{Message: msgSessionNotFound}, ErrSessionNotFound
	default:
		m.metrics.Inc(MetricStoreError)
		m.logger.WithError(res.Err).Error("logout failed")
		return LogoutResult{Message: msgSessionNotFound}, res.Err
	}

	m.metrics.Inc(MetricLogout)
	m.logger.WithField("session_ref", sessionRef(token)).Info("admin logged out")
	m.emitAudit(ctx, auditEventLogoutSession, res.Record.Principal, token, true, "", nil)

	return LogoutResult{Success: true, Message: msgLogoutSuccess}, nil
}

// SessionInfo returns the stored session for token without consulting the
// token's signature and without re-admitting it.
func (m *Manager) SessionInfo(ctx context.Context, token string) (SessionInfo, error) {
	if !m.ready() {
		return SessionInfo{}, ErrManagerNotReady
	}

	res := m.flows.Lookup(detach(ctx), token)
	switch res.Failure {
	case flows.ValidateFailureNone:
		return newSessionInfo(res.Record, m.now()), nil
	case flows.ValidateFailureInternal:
		return SessionInfo{}, res.Err
	default:
		return SessionInfo{}, ErrSessionNotFound
	}
}

/*
====================================
ADMINISTRATION
====================================
*/

// Sweep removes expired records from the in-process store and returns how
// many were removed. Store errors are logged and count as zero removals.
func (m *Manager) Sweep(ctx context.Context) int {
	if !m.ready() {
		return 0
	}

	n, err := m.flows.Sweep(detach(ctx))
	if err != nil {
		m.logger.WithError(err).Warn("session sweep failed")
	}
	if n > 0 {
		m.metrics.Add(MetricSessionsSwept, uint64(n))
		m.logger.WithField("removed", n).Debug("swept expired sessions")
		m.emitAudit(ctx, auditEventSwept, "", "", true, "", map[string]string{
			"count": strconv.Itoa(n),
		})
	}
	return n
}

// ListActiveSessions returns every live session, oldest first. Tokens are
// never included.
func (m *Manager) ListActiveSessions(ctx context.Context) ([]SessionInfo, error) {
	if !m.ready() {
		return nil, ErrManagerNotReady
	}

	entries, err := m.flows.ListActive(detach(ctx))
	if err != nil {
		m.metrics.Inc(MetricStoreError)
		return nil, err
	}

	now := m.now()
	out := make([]SessionInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, newSessionInfo(e.Record, now))
	}
	return out, nil
}

// ActiveSessionCount returns the number of live sessions.
func (m *Manager) ActiveSessionCount(ctx context.Context) (int, error) {
	if !m.ready() {
		return 0, ErrManagerNotReady
	}
	return m.flows.Count(detach(ctx))
}

// TerminateAll revokes every live session and returns how many were revoked.
func (m *Manager) TerminateAll(ctx context.Context) (int, error) {
	return m.terminate(ctx, "", nil)
}

// TerminatePrincipal revokes every live session belonging to principal.
func (m *Manager) TerminatePrincipal(ctx context.Context, principal string) (int, error) {
	if principal == "" {
		return 0, nil
	}
	return m.terminate(ctx, principal, func(rec session.Record) bool {
		return rec.Principal == principal
	})
}

func (m *Manager) terminate(ctx context.Context, principal string, match func(session.Record) bool) (int, error) {
	if !m.ready() {
		return 0, ErrManagerNotReady
	}

	n, err := m.flows.Terminate(detach(ctx), match)
	if n > 0 {
		m.metrics.Add(MetricSessionsTerminated, uint64(n))
	}

	failure := ""
	if err != nil {
		m.metrics.Inc(MetricStoreError)
		m.logger.WithError(err).WithField("terminated", n).Error("session termination stopped early")
		failure = err.Error()
	}
	m.emitAudit(ctx, auditEventTerminated, principal, "", err == nil, failure, map[string]string{
		"count": strconv.Itoa(n),
	})

	return n, err
}

/*
====================================
LIFECYCLE & INTROSPECTION
====================================
*/

// StartSweeper runs Sweep every interval until ctx is done or Close is
// called. A non-positive interval uses Config.Sweep.Interval. Starting a
// second sweeper while one is running returns an error.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) error {
	if !m.ready() {
		return ErrManagerNotReady
	}
	if interval <= 0 {
		interval = m.config.Sweep.Interval
	}

	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()

	if m.sweepStop != nil {
		return errors.New("sweeper already running")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.sweepStop = cancel
	m.sweepDone = done

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				m.Sweep(runCtx)
			}
		}
	}()

	return nil
}

func (m *Manager) stopSweeper() {
	m.sweepMu.Lock()
	stop, done := m.sweepStop, m.sweepDone
	m.sweepStop, m.sweepDone = nil, nil
	m.sweepMu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
}

// Close stops the background sweeper, runs one final sweep, drains pending
// audit events within Audit.DrainTimeout and closes a Redis client the Manager created itself. It is
// safe to call more than once.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		m.stopSweeper()
		if m.ready() {
			m.Sweep(context.Background())
		}
		if err := m.audit.Close(); err != nil {
			m.logger.WithError(err).WithField("dropped", m.audit.Dropped()).Warn("audit sink did not drain before shutdown")
		}
		if m.ownsRedis && m.redis != nil {
			if err := m.redis.Close(); err != nil {
				m.logger.WithError(err).Warn("closing redis client failed")
			}
		}
	})
}

// Health is a point-in-time view of the store.
type Health struct {
	Backend StoreBackend
	// RedisReachable is false when Redis is configured but did not answer a ping.
	RedisReachable bool
	RedisLatency   time.Duration
	// FallbackActive reports that store calls are currently served in-process.
	FallbackActive bool
}

// Health pings Redis, when configured, within the store's op timeout.
func (m *Manager) Health(ctx context.Context) Health {
	if m == nil {
		return Health{}
	}
	h := Health{Backend: m.backend}
	if m.redisStore == nil {
		return h
	}

	pingCtx, cancel := context.WithTimeout(detach(ctx), m.config.Redis.OpTimeout)
	defer cancel()

	latency, err := m.redisStore.Ping(pingCtx)
	h.RedisLatency = latency
	h.RedisReachable = err == nil
	h.FallbackActive = !m.fallback.Healthy()
	return h
}

// LoginAttempts returns the failed-login count currently held against
// username. It is always zero when the login throttle is disabled.
func (m *Manager) LoginAttempts(ctx context.Context, username string) (int, error) {
	if !m.ready() {
		return 0, ErrManagerNotReady
	}
	if m.limiter == nil {
		return 0, nil
	}
	return m.limiter.GetLoginAttempts(detach(ctx), username)
}

// SessionTimeout returns the configured session lifetime.
func (m *Manager) SessionTimeout() time.Duration {
	return m.config.SessionTimeout
}

// Cookie returns the configured session cookie settings.
func (m *Manager) Cookie() CookieConfig {
	return m.config.Cookie
}

// MetricsSnapshot returns a copy of every counter.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return m.metrics.Snapshot()
}

// AuditDropped returns how many audit events never reached the sink: dropped
// on a full buffer or abandoned when Close hit its drain timeout.
func (m *Manager) AuditDropped() uint64 {
	if m == nil {
		return 0
	}
	return m.audit.Dropped()
}

func (m *Manager) onStoreFallback(op string, err error) {
	m.metrics.Inc(MetricStoreFallback)
	m.emitAudit(context.Background(), auditEventStoreFallback, "", "", false, err.Error(), map[string]string{
		"op": op,
	})
}

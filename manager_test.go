package goSession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/token"
	"github.com/sirupsen/logrus"
)

// newPeerManager builds a second in-process manager that shares h's secret
// and clock but none of its state, like another server instance.
func newPeerManager(t *testing.T, h *managerHarness, mutate func(*Config)) *Manager {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := New().WithConfig(cfg).WithClock(h.clock.Now).Build()
	if err != nil {
		t.Fatalf("Build peer failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func mustLogin(t *testing.T, m *Manager) string {
	t.Helper()
	res, err := m.Login(context.Background(), testAdmin, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !res.Success || res.Token == "" {
		t.Fatalf("expected successful login, got %+v", res)
	}
	return res.Token
}

func TestLoginThenValidateReturnsPrincipal(t *testing.T) {
	for _, tc := range []struct {
		name  string
		build func(*testing.T, func(*Config)) *managerHarness
	}{
		{name: "memory", build: newManagerHarness},
		{name: "redis", build: newRedisManagerHarness},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := tc.build(t, nil)
			ctx := context.Background()

			res, err := h.manager.Login(ctx, testAdmin, testPassword)
			if err != nil {
				t.Fatalf("login failed: %v", err)
			}
			if res.Message != msgLoginSuccess {
				t.Fatalf("unexpected message %q", res.Message)
			}
			if want := h.clock.Now().Add(time.Hour); !res.ExpiresAt.Equal(want) {
				t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
			}

			info, err := h.manager.Validate(ctx, res.Token)
			if err != nil {
				t.Fatalf("validate failed: %v", err)
			}
			if info.Principal != testAdmin {
				t.Fatalf("expected principal %q, got %q", testAdmin, info.Principal)
			}
			if info.Remaining != time.Hour {
				t.Fatalf("expected full remaining lifetime, got %v", info.Remaining)
			}

			if n, err := h.manager.ActiveSessionCount(ctx); err != nil || n != 1 {
				t.Fatalf("expected 1 active session, got %d (%v)", n, err)
			}
		})
	}
}

func TestLoginInvalidCredentialsCreatesNothing(t *testing.T) {
	h := newManagerHarness(t, nil)
	ctx := context.Background()

	cases := []struct{ user, pass string }{
		{testAdmin, "wrong"},
		{"root", testPassword},
		{"root", "wrong"},
		{"", ""},
		{strings.ToUpper(testAdmin), testPassword},
	}
	for _, c := range cases {
		res, err := h.manager.Login(ctx, c.user, c.pass)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%q/%q: expected ErrInvalidCredentials, got %v", c.user, c.pass, err)
		}
		if res.Success || res.Token != "" {
			t.Fatalf("%q/%q: expected empty failure result, got %+v", c.user, c.pass, res)
		}
		if res.Message != msgInvalidCredentials {
			t.Fatalf("%q/%q: failure message must not vary, got %q", c.user, c.pass, res.Message)
		}
	}

	if n, _ := h.manager.ActiveSessionCount(ctx); n != 0 {
		t.Fatalf("expected no sessions, got %d", n)
	}
	sessions, err := h.manager.ListActiveSessions(ctx)
	if err != nil || len(sessions) != 0 {
		t.Fatalf("expected empty session list, got %v (%v)", sessions, err)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	h := newManagerHarness(t, nil)
	ctx := context.Background()
	tok := mustLogin(t, h.manager)

	h.Advance(time.Hour - time.Millisecond)
	info, err := h.manager.Validate(ctx, tok)
	if err != nil {
		t.Fatalf("expected token valid 1ms before timeout: %v", err)
	}
	if info.Remaining != time.Millisecond {
		t.Fatalf("expected 1ms remaining, got %v", info.Remaining)
	}

	h.Advance(time.Millisecond)
	if _, err := h.manager.Validate(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound at exactly the timeout, got %v", err)
	}
}

func TestValidateReadmitsVerifiedTokenOnStoreMiss(t *testing.T) {
	h := newManagerHarness(t, nil)
	ctx := context.Background()
	tok := mustLogin(t, h.manager)

	peer := newPeerManager(t, h, nil)

	if _, err := peer.SessionInfo(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected peer store to be empty, got %v", err)
	}
	if _, err := peer.Refresh(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected refresh of unseen token to fail, got %v", err)
	}

	h.Advance(10 * time.Minute)
	info, err := peer.Validate(ctx, tok)
	if err != nil {
		t.Fatalf("expected peer to accept verified token: %v", err)
	}
	if info.Remaining != 50*time.Minute {
		t.Fatalf("expected re-admitted session to keep its original expiry, got %v", info.Remaining)
	}
	if got := peer.MetricsSnapshot().Counters[MetricSessionReadmitted]; got != 1 {
		t.Fatalf("expected 1 readmission, got %d", got)
	}

	// now held by the peer's store
	if _, err := peer.SessionInfo(ctx, tok); err != nil {
		t.Fatalf("expected re-admitted session in peer store: %v", err)
	}

	h.Advance(50 * time.Minute)
	if _, err := peer.Validate(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected re-admitted session to expire on time, got %v", err)
	}
}

func TestValidateRejectsForgedAndForeignTokens(t *testing.T) {
	h := newManagerHarness(t, nil)
	ctx := context.Background()
	tok := mustLogin(t, h.manager)

	foreign := newPeerManager(t, h, func(c *Config) {
		c.SecretKey = "another-secret-key-of-enough-length"
	})
	if _, err := foreign.Validate(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected token signed with another secret to be rejected, got %v", err)
	}

	for _, raw := range []string{"", "garbage", tok + "x", tok[:len(tok)-4]} {
		if _, err := h.manager.Validate(ctx, raw); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected %q to be rejected, got %v", raw, err)
		}
	}
}

func TestRefreshRotatesAndInvalidatesOldToken(t *testing.T) {
	h := newManagerHarness(t, nil)
	ctx := context.Background()
	t1 := mustLogin(t, h.manager)

	h.Advance(20 * time.Minute)
	t2, err := h.manager.Refresh(ctx, t1)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if t2 == t1 {
		t.Fatalf("expected a new token")
	}

	info, err := h.manager.Validate(ctx, t2)
	if err != nil {
		t.Fatalf("validate new token failed: %v", err)
	}
	if !info.ExpiresAt.Equal(h.clock.Now().Add(time.Hour)) {
		t.Fatalf("expected refreshed expiry to restart from now, got %v", info.ExpiresAt)
	}

	if _, err := h.manager.Validate(ctx, t1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected old token to be rejected, got %v", err)
	}
	if _, err := h.manager.Refresh(ctx, t1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected second refresh of old token to fail, got %v", err)
	}

	if n, _ := h.manager.ActiveSessionCount(ctx); n != 1 {
		t.Fatalf("expected exactly one live session after rotation, got %d", n)
	}
}

func TestRefreshWithinSameMillisecondStillRotates(t *testing.T) {
	h := newManagerHarness(t, nil)
	t1 := mustLogin(t, h.manager)

	t2, err := h.manager.Refresh(context.Background(), t1)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if t2 == t1 {
		t.Fatalf("expected distinct tokens at an identical issue time")
	}
	if _, err := h.manager.Validate(context.Background(), t1); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected old token rejected, got %v", err)
	}
}

func TestLogoutRevokesWhileTokenStillDecodes(t *testing.T) {
	h := newManagerHarness(t, nil)
	ctx := context.Background()
	tok := mustLogin(t, h.manager)

	res, err := h.manager.Logout(ctx, tok)
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !res.Success || res.Message != msgLogoutSuccess {
		t.Fatalf("unexpected logout result %+v", res)
	}

	if _, err := h.manager.Validate(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected logged-out token to be rejected, got %v", err)
	}

	codec, err := token.NewCodec(token.Config{Secret: []byte(testSecret), Now: h.clock.Now})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	principal, _, err := codec.Decode(tok, time.Hour)
	if err != nil {
		t.Fatalf("expected logged-out token to still decode: %v", err)
	}
	if principal != testAdmin {
		t.Fatalf("unexpected principal %q", principal)
	}

	res, err = h.manager.Logout(ctx, tok)
	if !errors.Is(err, ErrSessionNotFound) || res.Success {
		t.Fatalf("expected second logout to report not found, got %+v %v", res, err)
	}
	if n, _ := h.manager.ActiveSessionCount(ctx); n != 0 {
		t.Fatalf("expected no live sessions, got %d", n)
	}
}

func TestSweepRemovesOnlyExpiredAndIsIdempotent(t *testing.T) {
	h := newManagerHarness(t, nil)
	ctx := context.Background()

	old := mustLogin(t, h.manager)
	h.Advance(time.Minute)
	// Expires exactly at the sweep instant.
	edge := mustLogin(t, h.manager)
	h.Advance(29 * time.Minute)
	fresh := mustLogin(t, h.manager)
	h.Advance(31 * time.Minute)

	if n := h.manager.Sweep(ctx); n != 2 {
		t.Fatalf("expected 2 records swept, got %d", n)
	}
	if n := h.manager.Sweep(ctx); n != 0 {
		t.Fatalf("expected idempotent second sweep, got %d", n)
	}

	if _, err := h.manager.Validate(ctx, fresh); err != nil {
		t.Fatalf("expected unexpired session untouched: %v", err)
	}
	for _, tok := range []string{old, edge} {
		if _, err := h.manager.Validate(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected swept session gone, got %v", err)
		}
	}
	if got := h.manager.MetricsSnapshot().Counters[MetricSessionsSwept]; got != 2 {
		t.Fatalf("expected sessions_swept=2, got %d", got)
	}
}

func TestOneSecondTimeoutScenario(t *testing.T) {
	h := newManagerHarness(t, func(c *Config) {
		c.SessionTimeout = time.Second
	})
	ctx := context.Background()

	a := mustLogin(t, h.manager)
	if _, err := h.manager.Validate(ctx, a); err != nil {
		t.Fatalf("validate immediately after login failed: %v", err)
	}

	h.Advance(1100 * time.Millisecond)

	if _, err := h.manager.Validate(ctx, a); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
	if _, err := h.manager.Refresh(ctx, a); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected refresh NotFound, got %v", err)
	}
}

func TestOneSecondTimeoutScenarioWallClock(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps past the session timeout")
	}

	cfg := testConfig(t)
	cfg.SessionTimeout = time.Second
	m, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer m.Close()

	ctx := context.Background()
	a := mustLogin(t, m)
	if _, err := m.Validate(ctx, a); err != nil {
		t.Fatalf("validate immediately after login failed: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := m.Validate(ctx, a); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
	if _, err := m.Refresh(ctx, a); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected refresh NotFound, got %v", err)
	}
}

func TestRedisOutageFallsBackAndRecovers(t *testing.T) {
	h := newRedisManagerHarness(t, nil)
	ctx := context.Background()

	before := mustLogin(t, h.manager)
	if len(h.redis.Keys()) != 1 {
		t.Fatalf("expected session written to redis, keys=%v", h.redis.Keys())
	}

	h.redis.Close()

	during := mustLogin(t, h.manager)
	if _, err := h.manager.Validate(ctx, during); err != nil {
		t.Fatalf("validate during outage failed: %v", err)
	}
	if _, err := h.manager.Validate(ctx, before); err != nil {
		t.Fatalf("expected pre-outage token to verify during outage: %v", err)
	}
	if _, err := h.manager.Logout(ctx, during); err != nil {
		t.Fatalf("logout during outage failed: %v", err)
	}
	if _, err := h.manager.Validate(ctx, during); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected logged-out token rejected during outage, got %v", err)
	}

	if got := h.manager.MetricsSnapshot().Counters[MetricStoreFallback]; got == 0 {
		t.Fatalf("expected store fallback to be counted")
	}
	if health := h.manager.Health(ctx); health.RedisReachable || !health.FallbackActive {
		t.Fatalf("expected unhealthy redis during outage, got %+v", health)
	}

	if err := h.redis.Restart(); err != nil {
		t.Fatalf("miniredis restart: %v", err)
	}
	if health := h.manager.Health(ctx); !health.RedisReachable {
		t.Fatalf("expected redis reachable after restart, got %+v", health)
	}
	h.Advance(3 * time.Second)

	after := mustLogin(t, h.manager)
	if !h.redis.Exists("admin_session:" + after) {
		t.Fatalf("expected post-recovery session written to redis")
	}

	for name, tok := range map[string]string{"before": before, "after": after} {
		if _, err := h.manager.Validate(ctx, tok); err != nil {
			t.Fatalf("validate %s token after recovery failed: %v", name, err)
		}
	}
	if _, err := h.manager.Validate(ctx, during); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected outage logout to survive recovery, got %v", err)
	}
	if health := h.manager.Health(ctx); health.FallbackActive {
		t.Fatalf("expected fallback inactive after recovery, got %+v", health)
	}
}

func TestTerminateAllAndPrincipal(t *testing.T) {
	h := newRedisManagerHarness(t, nil)
	ctx := context.Background()

	tokens := make([]string, 3)
	for i := range tokens {
		tokens[i] = mustLogin(t, h.manager)
		h.Advance(time.Minute)
	}

	sessions, err := h.manager.ListActiveSessions(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].IssuedAt.Before(sessions[i-1].IssuedAt) {
			t.Fatalf("expected sessions ordered oldest first")
		}
	}

	if n, err := h.manager.TerminatePrincipal(ctx, "someone-else"); err != nil || n != 0 {
		t.Fatalf("expected no sessions for another principal, got %d (%v)", n, err)
	}

	n, err := h.manager.TerminateAll(ctx)
	if err != nil {
		t.Fatalf("terminate all failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 sessions terminated, got %d", n)
	}

	for _, tok := range tokens {
		if _, err := h.manager.Validate(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected terminated token rejected, got %v", err)
		}
	}
	if sessions, _ := h.manager.ListActiveSessions(ctx); len(sessions) != 0 {
		t.Fatalf("expected no sessions listed, got %d", len(sessions))
	}

	tok := mustLogin(t, h.manager)
	if n, err := h.manager.TerminatePrincipal(ctx, testAdmin); err != nil || n != 1 {
		t.Fatalf("expected 1 admin session terminated, got %d (%v)", n, err)
	}
	if _, err := h.manager.Validate(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected terminated token rejected, got %v", err)
	}
}

func TestLoginThrottleBlocksAfterFailures(t *testing.T) {
	h := newRedisManagerHarness(t, func(c *Config) {
		c.LoginThrottle.Enabled = true
		c.LoginThrottle.MaxAttempts = 2
		c.LoginThrottle.Cooldown = time.Minute
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := h.manager.Login(ctx, testAdmin, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if n, err := h.manager.LoginAttempts(ctx, testAdmin); err != nil || n != 2 {
		t.Fatalf("expected 2 attempts, got %d (%v)", n, err)
	}

	res, err := h.manager.Login(ctx, testAdmin, testPassword)
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if res.Success || res.Message != msgRateLimited {
		t.Fatalf("unexpected rate-limited result %+v", res)
	}

	h.Advance(time.Minute + time.Second)

	mustLogin(t, h.manager)
	if n, _ := h.manager.LoginAttempts(ctx, testAdmin); n != 0 {
		t.Fatalf("expected counter reset after success, got %d", n)
	}
	if got := h.manager.MetricsSnapshot().Counters[MetricLoginRateLimited]; got != 1 {
		t.Fatalf("expected 1 rate-limited login, got %d", got)
	}
}

func TestCancelledContextDoesNotAbortLifecycle(t *testing.T) {
	h := newRedisManagerHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.manager.Login(ctx, testAdmin, testPassword)
	if err != nil {
		t.Fatalf("login with cancelled ctx failed: %v", err)
	}
	if _, err := h.manager.Validate(ctx, res.Token); err != nil {
		t.Fatalf("validate with cancelled ctx failed: %v", err)
	}
	if _, err := h.manager.Logout(ctx, res.Token); err != nil {
		t.Fatalf("logout with cancelled ctx failed: %v", err)
	}
	if got := h.manager.MetricsSnapshot().Counters[MetricStoreFallback]; got != 0 {
		t.Fatalf("expected cancellation not to trip the fallback, got %d", got)
	}
}

func TestConcurrentSessionLifecycles(t *testing.T) {
	h := newRedisManagerHarness(t, nil)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.manager.Login(ctx, testAdmin, testPassword)
			if err != nil {
				errs <- err
				return
			}
			for j := 0; j < 20; j++ {
				if _, err := h.manager.Validate(ctx, res.Token); err != nil {
					errs <- fmt.Errorf("validate: %w", err)
					return
				}
			}
			next, err := h.manager.Refresh(ctx, res.Token)
			if err != nil {
				errs <- fmt.Errorf("refresh: %w", err)
				return
			}
			if _, err := h.manager.Logout(ctx, next); err != nil {
				errs <- fmt.Errorf("logout: %w", err)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent lifecycle failed: %v", err)
	}
	if n, _ := h.manager.ActiveSessionCount(ctx); n != 0 {
		t.Fatalf("expected every session logged out, got %d", n)
	}
}

func TestAuditEventsCarryFingerprintNotToken(t *testing.T) {
	h := newManagerHarness(t, nil)
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	if _, err := h.manager.Login(ctx, testAdmin, "wrong"); err == nil {
		t.Fatalf("expected login failure")
	}
	res, err := h.manager.Login(ctx, testAdmin, testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	events := h.drainAudit(200 * time.Millisecond)
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}

	failure, success := events[0], events[1]
	if failure.EventType != auditEventLoginFailure || failure.Success || failure.Principal != "" {
		t.Fatalf("unexpected failure event %+v", failure)
	}
	if success.EventType != auditEventLoginSuccess || !success.Success || success.Principal != testAdmin {
		t.Fatalf("unexpected success event %+v", success)
	}
	if success.SessionRef != sessionRef(res.Token) || strings.Contains(success.SessionRef, res.Token) {
		t.Fatalf("expected token fingerprint, got %q", success.SessionRef)
	}
	if success.Metadata["ip"] != "203.0.113.7" {
		t.Fatalf("expected client ip in metadata, got %v", success.Metadata)
	}
	if success.ID == "" || success.ID == failure.ID {
		t.Fatalf("expected distinct event ids")
	}
}

func TestFailedLoginLogDoesNotNameField(t *testing.T) {
	h := newManagerHarness(t, nil)

	if _, err := h.manager.Login(context.Background(), "root", "wrong"); err == nil {
		t.Fatalf("expected login failure")
	}

	var warned bool
	for _, entry := range h.logs.AllEntries() {
		if entry.Level != logrus.WarnLevel {
			continue
		}
		warned = true
		msg := strings.ToLower(entry.Message)
		if strings.Contains(msg, "username") || strings.Contains(msg, "password") {
			t.Fatalf("warning reveals which credential failed: %q", entry.Message)
		}
		if _, ok := entry.Data["username"]; ok {
			t.Fatalf("warning carries the attempted username")
		}
	}
	if !warned {
		t.Fatalf("expected a warning for the failed login")
	}
}

func TestStartSweeperAndClose(t *testing.T) {
	h := newManagerHarness(t, nil)
	ctx := context.Background()

	if err := h.manager.StartSweeper(ctx, time.Hour); err != nil {
		t.Fatalf("StartSweeper failed: %v", err)
	}
	if err := h.manager.StartSweeper(ctx, time.Hour); err == nil {
		t.Fatalf("expected second sweeper to be refused")
	}

	mustLogin(t, h.manager)
	h.Advance(2 * time.Hour)

	h.manager.Close()
	h.manager.Close()

	if got := h.manager.MetricsSnapshot().Counters[MetricSessionsSwept]; got != 1 {
		t.Fatalf("expected Close to run a final sweep, got %d", got)
	}
}

func TestManagerNotReady(t *testing.T) {
	var m Manager
	if _, err := m.Login(context.Background(), testAdmin, testPassword); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
	if _, err := m.Validate(context.Background(), "x"); !errors.Is(err, ErrManagerNotReady) {
		t.Fatalf("expected ErrManagerNotReady, got %v", err)
	}
	if n := m.Sweep(context.Background()); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

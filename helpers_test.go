package goSession

import (
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

const (
	testAdmin    = "admin"
	testPassword = "correct-horse-battery"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

var (
	testHashOnce sync.Once
	testHash     string
	testHashErr  error
)

// testPasswordHash hashes testPassword once per test binary at the minimum cost.
func testPasswordHash(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		var hasher *password.Bcrypt
		hasher, testHashErr = password.NewBcrypt(password.MinCost)
		if testHashErr == nil {
			testHash, testHashErr = hasher.Hash(testPassword)
		}
	})
	if testHashErr != nil {
		t.Fatalf("hash test password: %v", testHashErr)
	}
	return testHash
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SecretKey = testSecret
	cfg.SessionTimeout = time.Hour
	cfg.Admin.Username = testAdmin
	cfg.Admin.PasswordHash = testPasswordHash(t)
	cfg.Admin.BcryptCost = password.MinCost
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

type managerHarness struct {
	manager *Manager
	clock   *testClock
	logs    *logrustest.Hook
	audit   *ChannelSink

	// set by newRedisManagerHarness
	redis  *miniredis.Miniredis
	client *redis.Client
}

// Advance moves the manager clock and, when Redis is in use, the miniredis
// TTL clock by the same amount.
func (h *managerHarness) Advance(d time.Duration) {
	h.clock.Advance(d)
	if h.redis != nil {
		h.redis.FastForward(d)
	}
}

func newManagerHarness(t *testing.T, mutate func(*Config)) *managerHarness {
	t.Helper()
	return buildHarness(t, mutate, false)
}

func newRedisManagerHarness(t *testing.T, mutate func(*Config)) *managerHarness {
	t.Helper()
	return buildHarness(t, mutate, true)
}

func buildHarness(t *testing.T, mutate func(*Config), withRedis bool) *managerHarness {
	t.Helper()

	cfg := testConfig(t)
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 256
	cfg.Audit.DropIfFull = true
	if mutate != nil {
		mutate(&cfg)
	}

	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &managerHarness{
		clock: newTestClock(),
		logs:  hook,
		audit: NewChannelSink(256),
	}

	builder := New().
		WithConfig(cfg).
		WithLogger(logger).
		WithAuditSink(h.audit).
		WithClock(h.clock.Now)

	if withRedis {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis start: %v", err)
		}
		h.redis = mr
		h.client = redis.NewClient(&redis.Options{
			Addr:        mr.Addr(),
			MaxRetries:  -1,
			DialTimeout: 200 * time.Millisecond,
		})
		builder = builder.WithRedis(h.client)
	}

	m, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h.manager = m

	t.Cleanup(func() {
		m.Close()
		if h.client != nil {
			_ = h.client.Close()
		}
		if h.redis != nil {
			h.redis.Close()
		}
	})
	return h
}

// drainAudit collects every audit event delivered within wait.
func (h *managerHarness) drainAudit(wait time.Duration) []AuditEvent {
	var out []AuditEvent
	deadline := time.After(wait)
	for {
		select {
		case ev := <-h.audit.Events():
			out = append(out, ev)
		case <-deadline:
			return out
		}
	}
}

//go:build integration
// +build integration

package test

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testAdmin    = "admin"
	testPassword = "integration-password"
	testSecret   = "integration-secret-0123456789abcdef"
)

// cmdCounter is a go-redis Hook that counts the number of Redis round-trips
// (individual commands and pipeline calls).
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64  { return h.commands.Load() }
func (h *cmdCounter) Pipelines() int64 { return h.pipelines.Load() }

type integrationEnv struct {
	redis   *miniredis.Miniredis
	client  *redis.Client
	counter *cmdCounter
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})

	// Warm the connection so handshake commands are not counted.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return &integrationEnv{redis: mr, client: rdb, counter: counter}
}

func integrationConfig() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.SecretKey = testSecret
	cfg.SessionTimeout = time.Hour
	cfg.Admin.Username = testAdmin
	cfg.Admin.Password = testPassword
	cfg.Admin.BcryptCost = password.MinCost
	return cfg
}

// newManager builds a Redis-backed manager over env's client. Several
// managers built on one env behave like replicas sharing a Redis.
func (e *integrationEnv) newManager(t *testing.T, mutate func(*goSession.Config)) *goSession.Manager {
	t.Helper()

	cfg := integrationConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := goSession.New().WithConfig(cfg).WithRedis(e.client).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func mustLogin(t *testing.T, m *goSession.Manager) string {
	t.Helper()
	res, err := m.Login(context.Background(), testAdmin, testPassword)
	if err != nil || !res.Success {
		t.Fatalf("login failed: res=%+v err=%v", res, err)
	}
	return res.Token
}

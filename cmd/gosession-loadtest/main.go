package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/password"
	"github.com/alecthomas/kong"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	loadAdmin    = "admin"
	loadPassword = "loadtest-password"
	loadSecret   = "loadtest-secret-0123456789abcdef"
)

var cli struct {
	Sessions    int    `help:"number of sessions to seed through Login" default:"1000"`
	Concurrency int    `help:"number of concurrent workers" default:"256"`
	Ops         int    `help:"operations per phase (validate, refresh)" default:"200000"`
	RedisAddr   string `help:"redis address; miniredis is used when empty" env:"REDIS_ADDR"`
	Prefix      string `help:"session key prefix" default:"loadtest_session"`
	Memory      bool   `help:"use the in-process store instead of redis"`
}

type sessionState struct {
	mu    sync.Mutex
	token string
}

func main() {
	kctx := kong.Parse(&cli, kong.Description("Drive concurrent login, validate and refresh load through a session manager."))
	if cli.Sessions <= 0 || cli.Concurrency <= 0 || cli.Ops <= 0 {
		kctx.Fatalf("sessions, concurrency, and ops must be > 0")
	}
	kctx.FatalIfErrorf(run(context.Background()))
}

func run(ctx context.Context) error {
	client, cleanup, err := redisClient()
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := newManager(client)
	if err != nil {
		return err
	}
	defer m.Close()

	states := make([]sessionState, cli.Sessions)
	fmt.Printf("seeding %d sessions...\n", cli.Sessions)
	seed := runPhase(cli.Sessions, cli.Concurrency, func(i int, _ *rand.Rand) error {
		res, err := m.Login(ctx, loadAdmin, loadPassword)
		if err != nil {
			return err
		}
		states[i].token = res.Token
		return nil
	})
	if seed.failures > 0 {
		return fmt.Errorf("seeding failed for %d sessions", seed.failures)
	}
	fmt.Printf("seeded in %s\n", seed.total.Round(time.Millisecond))

	validateStats := runPhase(cli.Ops, cli.Concurrency, func(_ int, r *rand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		token := state.token
		state.mu.Unlock()
		_, err := m.Validate(ctx, token)
		return err
	})

	refreshStats := runPhase(cli.Ops, cli.Concurrency, func(_ int, r *rand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()
		next, err := m.Refresh(ctx, state.token)
		if err != nil {
			return err
		}
		state.token = next
		return nil
	})

	fmt.Println("---- results ----")
	printStats("login", seed)
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)

	snap := m.MetricsSnapshot()
	fmt.Printf("store fallbacks=%d store errors=%d\n",
		snap.Counters[goSession.MetricStoreFallback], snap.Counters[goSession.MetricStoreError])
	return nil
}

func redisClient() (redis.UniversalClient, func(), error) {
	if cli.Memory {
		fmt.Println("using in-process store")
		return nil, func() {}, nil
	}
	if cli.RedisAddr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cli.RedisAddr}})
		fmt.Printf("using redis at %s\n", cli.RedisAddr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func newManager(client redis.UniversalClient) (*goSession.Manager, error) {
	cfg := goSession.DefaultConfig()
	cfg.SecretKey = loadSecret
	cfg.SessionTimeout = goSession.MaxSessionTimeout
	cfg.Admin.Username = loadAdmin
	cfg.Admin.Password = loadPassword
	cfg.Admin.BcryptCost = password.MinCost
	cfg.Redis.Prefix = cli.Prefix

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	b := goSession.New().WithConfig(cfg).WithLogger(logger)
	if client != nil {
		b = b.WithRedis(client)
	}
	return b.Build()
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

// runPhase calls op ops times across concurrency workers. Each worker has its
// own rand source.
func runPhase(ops, concurrency int, op func(i int, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
		logOnce   sync.Once
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					if !errors.Is(err, goSession.ErrSessionNotFound) {
						logOnce.Do(func() { fmt.Fprintf(os.Stderr, "first failure: %v\n", err) })
					}
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

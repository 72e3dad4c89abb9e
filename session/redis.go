package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys as "admin_session:<token>".
const DefaultRedisPrefix = "admin_session"

const scanBatchSize = 500

// RedisStore is the networked [Store]. Each record is stored under a
// namespaced key with a native TTL, so SweepExpired is a no-op.
//
// Every Redis failure is reported wrapped in [ErrUnavailable]; the caller
// bounds each call through ctx and the client's dial/read/write timeouts.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a [RedisStore] over client. An empty prefix uses
// [DefaultRedisPrefix]; a nil now uses time.Now.
func NewRedisStore(client redis.UniversalClient, prefix string, now func() time.Time) *RedisStore {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    now,
	}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + ":" + token
}

// Put stores rec with SET PX. A non-positive ttl removes the key instead.
//
//	Performance: 1 Redis command.
func (s *RedisStore) Put(ctx context.Context, token string, rec Record, ttl time.Duration) error {
	if ttl <= 0 {
		_, err := s.Delete(ctx, token)
		return err
	}

	data, err := Encode(rec)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get fetches and decodes the record for token. A blob that fails to decode
// is deleted and reported as [ErrCorruptRecord]; if that DEL fails the call
// reports [ErrUnavailable].
//
//	Performance: 1 Redis GET (plus 1 DEL on expired or corrupt entries).
func (s *RedisStore) Get(ctx context.Context, token string) (Record, bool, error) {
	key := s.key(token)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
			return Record{}, false, fmt.Errorf("%w: %v (dropping corrupt record: %v)", ErrUnavailable, delErr, err)
		}
		return Record{}, false, err
	}

	if rec.Expired(s.now()) {
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			return Record{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Record{}, false, nil
	}

	return rec, true, nil
}

// Delete removes token; deleting a missing key reports false without error.
//
//	Performance: 1 Redis DEL.
func (s *RedisStore) Delete(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// SweepExpired is a no-op: Redis expires keys natively.
func (s *RedisStore) SweepExpired(context.Context) (int, error) {
	return 0, nil
}

// Count scans the session namespace and counts live sessions.
// This is an admin-only O(n) operation and must not be used in request hot paths.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// List scans the session namespace and fetches each batch in one pipeline.
// Keys that vanish between SCAN and GET, or hold corrupt, expired or revoked
// blobs, are skipped.
func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	all, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return liveOnly(all), nil
}

// listAll is List with tombstones kept.
func (s *RedisStore) listAll(ctx context.Context) ([]Entry, error) {
	out := make([]Entry, 0)
	now := s.now()

	err := s.scan(ctx, func(keys []string) error {
		pipe := s.redis.Pipeline()
		cmds := make([]*redis.StringCmd, len(keys))
		for i, key := range keys {
			cmds[i] = pipe.Get(ctx, key)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		for i, cmd := range cmds {
			data, cmdErr := cmd.Bytes()
			if cmdErr != nil {
				if errors.Is(cmdErr, redis.Nil) {
					continue
				}
				return fmt.Errorf("%w: %v", ErrUnavailable, cmdErr)
			}
			rec, decErr := Decode(data)
			if decErr != nil || rec.Expired(now) {
				continue
			}
			out = append(out, Entry{
				Token:  strings.TrimPrefix(keys[i], s.prefix+":"),
				Record: rec,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}

// scan walks the namespace once. SCAN may return a key more than once, so
// keys are deduplicated before fn sees them.
func (s *RedisStore) scan(ctx context.Context, fn func(keys []string) error) error {
	pattern := s.prefix + ":*"
	seen := make(map[string]struct{})
	var cursor uint64

	for {
		batch, next, err := s.redis.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		keys := batch[:0]
		for _, key := range batch {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
